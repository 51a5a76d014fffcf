package ctxutil

import (
	"context"
	"testing"

	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
)

func TestRequestDataRoundTrip(t *testing.T) {
	if rd := GetRequestData(context.Background()); rd != nil {
		t.Fatalf("expected nil request data")
	}
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity")
	}

	fid := uint(3)
	ctx := WithRequestData(nil, &RequestData{UserID: 9, Identity: &auth.Identity{UserID: 9, FarmerID: &fid}})
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID != 9 {
		t.Fatalf("rd=%+v", rd)
	}
	id, ok := IdentityFrom(ctx)
	if !ok || !id.IsFarmer() || id.IsAgronomist() {
		t.Fatalf("identity=%+v ok=%v", id, ok)
	}
}

func TestTraceData(t *testing.T) {
	if GetTraceData(nil) != nil || GetTraceData(context.Background()) != nil {
		t.Fatalf("expected nil trace data")
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	if td := GetTraceData(ctx); td == nil || td.TraceID != "t" || td.RequestID != "r" {
		t.Fatalf("td=%+v", td)
	}
}
