package validate

import (
	"testing"

	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
)

type sampleInput struct {
	SiteID     int    `json:"site_id" validate:"required,min=1,max=99"`
	StrainCode string `json:"strain_code" validate:"required,len=3,numeric"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(sampleInput{SiteID: 7, StrainCode: "042"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructRejectsAndNamesFields(t *testing.T) {
	err := Struct(sampleInput{SiteID: 120, StrainCode: "ABCD"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if _, found := details["site_id"]; !found {
		t.Fatalf("expected site_id in details: %v", details)
	}
	if _, found := details["strain_code"]; !found {
		t.Fatalf("expected strain_code in details: %v", details)
	}
}
