package core

import (
	"errors"
	"fmt"
	"math"
)

// Column names as they appear in the source CSV header.
const (
	ColYear  = "Year"
	ColMonth = "Month"

	ColConstructionJobs         = "Construction Jobs"
	ColEducationHealthJobs      = "Education and Health Services Jobs"
	ColFinancialJobs            = "Financial Activities Jobs"
	ColInformationJobs          = "Information Jobs"
	ColLeisureHospitalityJobs   = "Leisure and Hospitality Jobs"
	ColManufacturingJobs        = "Manufacturing Jobs"
	ColNaturalResourcesJobs     = "Natural Resources and Mining Jobs"
	ColOtherServicesJobs        = "Other Services Jobs"
	ColProfessionalJobs         = "Professional and Business Services Jobs"
	ColPublicAdministrationJobs = "Public Administration Jobs"
	ColTradeTransportationJobs  = "Trade, Transportation and Utilities Jobs"
	ColUnclassifiedJobs         = "Unclassified Jobs"

	ColUnemployment      = "SJ Unemployment"
	ColMetroUnemployment = "SJ Metro Unemployment"
)

type (
	// Record is one monthly observation of the San Jose economics dataset.
	// Numeric fields hold NaN when the source cell is empty.
	Record struct {
		Year  int
		Month int // 1-12, 0 when the source has no month column

		ConstructionJobs         float64
		EducationHealthJobs      float64
		FinancialJobs            float64
		InformationJobs          float64
		LeisureHospitalityJobs   float64
		ManufacturingJobs        float64
		NaturalResourcesJobs     float64
		OtherServicesJobs        float64
		ProfessionalJobs         float64
		PublicAdministrationJobs float64
		TradeTransportationJobs  float64
		UnclassifiedJobs         float64

		Unemployment      float64
		MetroUnemployment float64
	}

	// Column binds a source column name to a numeric field of Record.
	Column struct {
		Name string
		Get  func(Record) float64
		Set  func(*Record, float64)
	}
)

var (
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrUnknownColumn = errors.New("unknown column")
)

// Columns is the ordered registry of numeric columns. Order matches the
// source CSV and drives the column order of every derived table.
var Columns = []Column{
	{ColConstructionJobs, func(r Record) float64 { return r.ConstructionJobs }, func(r *Record, v float64) { r.ConstructionJobs = v }},
	{ColEducationHealthJobs, func(r Record) float64 { return r.EducationHealthJobs }, func(r *Record, v float64) { r.EducationHealthJobs = v }},
	{ColFinancialJobs, func(r Record) float64 { return r.FinancialJobs }, func(r *Record, v float64) { r.FinancialJobs = v }},
	{ColInformationJobs, func(r Record) float64 { return r.InformationJobs }, func(r *Record, v float64) { r.InformationJobs = v }},
	{ColLeisureHospitalityJobs, func(r Record) float64 { return r.LeisureHospitalityJobs }, func(r *Record, v float64) { r.LeisureHospitalityJobs = v }},
	{ColManufacturingJobs, func(r Record) float64 { return r.ManufacturingJobs }, func(r *Record, v float64) { r.ManufacturingJobs = v }},
	{ColNaturalResourcesJobs, func(r Record) float64 { return r.NaturalResourcesJobs }, func(r *Record, v float64) { r.NaturalResourcesJobs = v }},
	{ColOtherServicesJobs, func(r Record) float64 { return r.OtherServicesJobs }, func(r *Record, v float64) { r.OtherServicesJobs = v }},
	{ColProfessionalJobs, func(r Record) float64 { return r.ProfessionalJobs }, func(r *Record, v float64) { r.ProfessionalJobs = v }},
	{ColPublicAdministrationJobs, func(r Record) float64 { return r.PublicAdministrationJobs }, func(r *Record, v float64) { r.PublicAdministrationJobs = v }},
	{ColTradeTransportationJobs, func(r Record) float64 { return r.TradeTransportationJobs }, func(r *Record, v float64) { r.TradeTransportationJobs = v }},
	{ColUnclassifiedJobs, func(r Record) float64 { return r.UnclassifiedJobs }, func(r *Record, v float64) { r.UnclassifiedJobs = v }},
	{ColUnemployment, func(r Record) float64 { return r.Unemployment }, func(r *Record, v float64) { r.Unemployment = v }},
	{ColMetroUnemployment, func(r Record) float64 { return r.MetroUnemployment }, func(r *Record, v float64) { r.MetroUnemployment = v }},
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(Columns))
	for i, c := range Columns {
		idx[c.Name] = i
	}
	return idx
}()

// NewRecord returns a record for the given period with every numeric field
// set to NaN.
func NewRecord(year, month int) Record {
	r := Record{Year: year, Month: month}
	for _, c := range Columns {
		c.Set(&r, math.NaN())
	}
	return r
}

// ColumnByName looks up a numeric column by its exact source name.
func ColumnByName(name string) (Column, bool) {
	i, ok := columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return Columns[i], true
}

// ColumnNames returns the numeric column names in registry order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Value returns the numeric value of the named column.
func (r Record) Value(name string) (float64, error) {
	c, ok := ColumnByName(name)
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return c.Get(r), nil
}

func (r Record) Validate() error {
	if r.Year < 1 || r.Year > 9999 {
		return ErrInvalidYear
	}
	if r.Month < 0 || r.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}
