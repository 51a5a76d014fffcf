package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedFarmer(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uint) *farm.Farmer {
	tb.Helper()
	f := &farm.Farmer{UserID: userID, FarmName: "farm", Address: "road 1"}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed farmer: %v", err)
	}
	return f
}

func SeedAgronomist(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uint) *farm.Agronomist {
	tb.Helper()
	a := &farm.Agronomist{UserID: userID, CompanyName: "agro", LicenseNumber: "LN-1"}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed agronomist: %v", err)
	}
	return a
}

func SeedField(tb testing.TB, ctx context.Context, tx *gorm.DB, farmerID uint, lat, lon float64) *farm.Field {
	tb.Helper()
	f := &farm.Field{
		FarmerID:     farmerID,
		Name:         "north",
		AreaHectares: 12.5,
		CropType:     "wheat",
		Latitude:     lat,
		Longitude:    lon,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed field: %v", err)
	}
	return f
}

func SeedReading(tb testing.TB, ctx context.Context, tx *gorm.DB, fieldID uint, date time.Time, value float64) *farm.VegetationReading {
	tb.Helper()
	r := &farm.VegetationReading{
		FieldID:    fieldID,
		Date:       date.UTC(),
		Value:      value,
		Provenance: datatypes.JSON([]byte(`{"source":"mock","is_real_data":false}`)),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed reading: %v", err)
	}
	return r
}

func SeedRequest(tb testing.TB, ctx context.Context, tx *gorm.DB, agronomistID, fieldID uint, status treatment.RequestStatus, before float64) *treatment.Request {
	tb.Helper()
	r := &treatment.Request{
		AgronomistID:  agronomistID,
		FieldID:       fieldID,
		Status:        status,
		Message:       "spray",
		ProposedPrice: 100,
		BeforeIndex:   before,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed request: %v", err)
	}
	return r
}

func SeedTreatment(tb testing.TB, ctx context.Context, tx *gorm.DB, requestID uint, status treatment.Status) *treatment.Treatment {
	tb.Helper()
	t := &treatment.Treatment{RequestID: requestID, Status: status}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed treatment: %v", err)
	}
	return t
}
