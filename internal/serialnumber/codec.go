package serialnumber

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/internal/batchnumber"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
)

// Canonical serial number layout, 30 digits, all numeric:
//
//	SS CCC TT YYYYMMDD BBBB UUUUU WWWW P K
//	2  3   2  8        4    5     4    1 1
//
// SS site, CCC strain code, TT serial type code, YYYYMMDD production date,
// BBBB parent batch sequence, UUUUU unit sequence, WWWW weight in tenths of
// a gram (max 999.9g), P pack quantity, K Luhn check digit over the
// preceding 29 digits.
//
// The short barcode form is 13 digits: SS YYMMDD NNNNN from the site's daily
// counter. Earlier 16-digit week-based serials are no longer issued and fail
// validation.
const (
	Length      = 30
	ShortLength = 13

	siteWidth     = 2
	strainWidth   = 3
	typeWidth     = 2
	dateWidth     = 8
	batchSeqWidth = 4
	unitSeqWidth  = 5
	weightWidth   = 4
	packWidth     = 1

	dateLayout      = "20060102"
	shortDateLayout = "060102"

	// maxWeightTenths is the ceiling of the WWWW field: 999.9 grams.
	maxWeightTenths = 9999
)

// Components is the decoded form of a full serial number.
type Components struct {
	SiteID         int
	StrainCode     string
	SerialType     enums.SerialType
	ProductionDate time.Time
	BatchSequence  int64
	UnitSequence   int64
	WeightTenths   int64
	PackQty        int
}

// WeightGrams converts the embedded tenths field back to grams.
func (c Components) WeightGrams() decimal.Decimal {
	return decimal.NewFromInt(c.WeightTenths).Div(decimal.NewFromInt(10))
}

// ShortComponents is the decoded form of the 13-digit barcode string.
type ShortComponents struct {
	SiteID         int
	ProductionDate time.Time
	DailySequence  int64
}

// Format renders components into the canonical 30-digit string, appending
// the Luhn check digit.
func Format(c Components) (string, error) {
	payload := fmt.Sprintf("%02d%s%s%s%04d%05d%04d%d",
		c.SiteID,
		c.StrainCode,
		c.SerialType.Code(),
		c.ProductionDate.Format(dateLayout),
		c.BatchSequence,
		c.UnitSequence,
		c.WeightTenths,
		c.PackQty,
	)
	check, err := luhnCheckDigit(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "serial payload not numeric")
	}
	return payload + string(check), nil
}

// FormatShort renders the 13-digit barcode form.
func FormatShort(c ShortComponents) string {
	return fmt.Sprintf("%02d%s%05d", c.SiteID, c.ProductionDate.Format(shortDateLayout), c.DailySequence)
}

// Parse decodes a full serial number with strict fixed-width extraction,
// including the Luhn check. Pure function, no I/O.
func Parse(serial string) (*Components, error) {
	if len(serial) != Length {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "serial number must be %d digits, got %d", Length, len(serial))
	}
	for _, r := range serial {
		if r < '0' || r > '9' {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number must be all numeric")
		}
	}
	if !luhnValid(serial) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number check digit mismatch")
	}

	pos := 0
	next := func(width int) string {
		field := serial[pos : pos+width]
		pos += width
		return field
	}

	siteField := next(siteWidth)
	strainField := next(strainWidth)
	typeField := next(typeWidth)
	dateField := next(dateWidth)
	batchSeqField := next(batchSeqWidth)
	unitSeqField := next(unitSeqWidth)
	weightField := next(weightWidth)
	packField := next(packWidth)

	siteID, _ := strconv.Atoi(siteField)
	if siteID < 1 || siteID > 99 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "site id %d out of range 1-99", siteID)
	}

	serialType, err := enums.SerialTypeFromCode(typeField)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid serial type field")
	}

	productionDate, err := time.ParseInLocation(dateLayout, dateField, time.UTC)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid production date field")
	}

	batchSequence, _ := strconv.ParseInt(batchSeqField, 10, 64)
	if batchSequence == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch sequence must be greater than zero")
	}
	unitSequence, _ := strconv.ParseInt(unitSeqField, 10, 64)
	if unitSequence == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit sequence must be greater than zero")
	}

	weightTenths, _ := strconv.ParseInt(weightField, 10, 64)
	packQty, _ := strconv.Atoi(packField)
	if packQty == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pack quantity must be greater than zero")
	}

	return &Components{
		SiteID:         siteID,
		StrainCode:     strainField,
		SerialType:     serialType,
		ProductionDate: productionDate,
		BatchSequence:  batchSequence,
		UnitSequence:   unitSequence,
		WeightTenths:   weightTenths,
		PackQty:        packQty,
	}, nil
}

// Validate reports whether the string is a well-formed serial number,
// including the Luhn re-check.
func Validate(serial string) bool {
	_, err := Parse(serial)
	return err == nil
}

// ParseShort decodes the 13-digit barcode form.
func ParseShort(shortCode string) (*ShortComponents, error) {
	if len(shortCode) != ShortLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "short serial must be %d digits, got %d", ShortLength, len(shortCode))
	}
	for _, r := range shortCode {
		if r < '0' || r > '9' {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "short serial must be all numeric")
		}
	}

	siteID, _ := strconv.Atoi(shortCode[:siteWidth])
	if siteID < 1 || siteID > 99 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "site id %d out of range 1-99", siteID)
	}
	productionDate, err := time.ParseInLocation(shortDateLayout, shortCode[siteWidth:siteWidth+len(shortDateLayout)], time.UTC)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid short serial date field")
	}
	dailySequence, _ := strconv.ParseInt(shortCode[siteWidth+len(shortDateLayout):], 10, 64)
	if dailySequence == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "daily sequence must be greater than zero")
	}

	return &ShortComponents{
		SiteID:         siteID,
		ProductionDate: productionDate,
		DailySequence:  dailySequence,
	}, nil
}

// ValidateShort reports whether the string is a well-formed short serial.
func ValidateShort(shortCode string) bool {
	_, err := ParseShort(shortCode)
	return err == nil
}

// DeriveParentBatchNumber reconstructs the canonical 16-digit batch number a
// serial belongs to. The batch type must be supplied by the caller: the
// serial's own type code records what the unit is for, not what kind of
// batch produced it.
func DeriveParentBatchNumber(serial string, siteID int, batchType enums.BatchType) (string, error) {
	components, err := Parse(serial)
	if err != nil {
		return "", err
	}
	if siteID != 0 && siteID != components.SiteID {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "site id %d does not match serial site %d", siteID, components.SiteID)
	}
	if !batchType.IsValid() {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid batch type %q", batchType)
	}
	return batchnumber.Format(batchnumber.Components{
		SiteID:    components.SiteID,
		BatchType: batchType,
		BatchDate: components.ProductionDate,
		Sequence:  components.BatchSequence,
	}), nil
}
