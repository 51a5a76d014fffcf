package domain

import (
	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
)

type (
	Identity   = auth.Identity
	Capability = auth.Capability

	Farmer            = farm.Farmer
	Agronomist        = farm.Agronomist
	Field             = farm.Field
	VegetationReading = farm.VegetationReading

	TreatmentRequest = treatment.Request
	Treatment        = treatment.Treatment
	TreatmentView    = treatment.View
	RequestStatus    = treatment.RequestStatus
	TreatmentStatus  = treatment.Status
)

// Models lists every persisted entity, in migration order.
func Models() []any {
	return []any{
		&farm.Farmer{},
		&farm.Agronomist{},
		&farm.Field{},
		&farm.VegetationReading{},
		&treatment.Request{},
		&treatment.Treatment{},
	}
}
