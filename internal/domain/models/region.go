// internal/domain/models/region.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Region is one of the fixed administrative regions institutions belong to.
// Regions are seeded at startup and never edited afterwards.
type Region struct {
	ID        primitive.ObjectID `bson:"_id"`
	Code      string             `bson:"code"` // two-letter code, unique
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"created_at"`
}

// RegionSeed is a code/name pair used to seed the regions collection.
type RegionSeed struct {
	Code string
	Name string
}

// NamibiaRegions lists the 14 regions, ordered by code.
var NamibiaRegions = []RegionSeed{
	{Code: "CA", Name: "Zambezi"},
	{Code: "ER", Name: "Erongo"},
	{Code: "HA", Name: "Hardap"},
	{Code: "KA", Name: "//Karas"},
	{Code: "KE", Name: "Kavango East"},
	{Code: "KH", Name: "Khomas"},
	{Code: "KU", Name: "Kunene"},
	{Code: "KW", Name: "Kavango West"},
	{Code: "OD", Name: "Otjozondjupa"},
	{Code: "OH", Name: "Omaheke"},
	{Code: "ON", Name: "Oshana"},
	{Code: "OS", Name: "Omusati"},
	{Code: "OT", Name: "Oshikoto"},
	{Code: "OW", Name: "Ohangwena"},
}

// IsRegionCode reports whether code names one of the seeded regions.
func IsRegionCode(code string) bool {
	for _, r := range NamibiaRegions {
		if r.Code == code {
			return true
		}
	}
	return false
}
