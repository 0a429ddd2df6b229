package batchnumber

import (
	"fmt"
	"strconv"
	"time"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
)

// Canonical batch number layout, 16 digits, all numeric:
//
//	SS TT YYYYMMDD NNNN
//	2  2  8        4
//
// SS is the site (01-99), TT the batch type code, YYYYMMDD the batch date and
// NNNN the day-scoped sequence (0001-9999). A 12-digit week-based layout
// existed historically; it is no longer issued and fails validation here.
const (
	Length = 16

	siteWidth     = 2
	typeWidth     = 2
	dateWidth     = 8
	sequenceWidth = 4

	dateLayout = "20060102"

	// MaxSequence is the largest ordinal the NNNN field can carry.
	MaxSequence = 9999
)

// Components is the decoded form of a batch number.
type Components struct {
	SiteID    int
	BatchType enums.BatchType
	BatchDate time.Time
	Sequence  int64
}

// Format renders components into the canonical 16-digit string. It does not
// validate ranges; pair it with Parse for round-trip guarantees.
func Format(c Components) string {
	return fmt.Sprintf("%02d%s%s%04d",
		c.SiteID,
		c.BatchType.Code(),
		c.BatchDate.Format(dateLayout),
		c.Sequence,
	)
}

// Parse decodes a batch number with strict fixed-width field extraction.
// It is a pure function; existence against the sequence store is a separate
// concern (Service.Exists).
func Parse(batchNumber string) (*Components, error) {
	if len(batchNumber) != Length {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "batch number must be %d digits, got %d", Length, len(batchNumber))
	}
	for _, r := range batchNumber {
		if r < '0' || r > '9' {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch number must be all numeric")
		}
	}

	pos := 0
	siteField := batchNumber[pos : pos+siteWidth]
	pos += siteWidth
	typeField := batchNumber[pos : pos+typeWidth]
	pos += typeWidth
	dateField := batchNumber[pos : pos+dateWidth]
	pos += dateWidth
	sequenceField := batchNumber[pos : pos+sequenceWidth]

	siteID, err := strconv.Atoi(siteField)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid site field")
	}
	if siteID < 1 || siteID > 99 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "site id %d out of range 1-99", siteID)
	}

	batchType, err := enums.BatchTypeFromCode(typeField)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch type field")
	}

	batchDate, err := time.ParseInLocation(dateLayout, dateField, time.UTC)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date field")
	}

	sequence, err := strconv.ParseInt(sequenceField, 10, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sequence field")
	}
	if sequence == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sequence must be greater than zero")
	}

	return &Components{
		SiteID:    siteID,
		BatchType: batchType,
		BatchDate: batchDate,
		Sequence:  sequence,
	}, nil
}

// Validate reports whether the string is a well-formed batch number. It runs
// the same checks as Parse without surfacing the failure.
func Validate(batchNumber string) bool {
	_, err := Parse(batchNumber)
	return err == nil
}
