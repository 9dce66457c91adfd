// Package customer fetches customer records from the upstream record API and
// normalizes them into the canonical shape served to the workbench and the
// reasoning engine.
//
// The upstream schema has no fields for age, occupation, citizenship, tenure,
// products, or tax residency. Those are carried as an encoded suffix on the
// address street name ("Pine Street || Age: 68 || Occupation: Teacher"), which
// DecodeAttributes turns into typed Attributes and Normalize promotes to the
// top level of the record.
package customer

import (
	"strings"
)

// Address is the upstream address structure.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// String renders the address on one line, skipping empty parts:
// "12 Pine Street, Springfield, IL 62701".
func (a Address) String() string {
	street := joinNonEmpty(" ", a.StreetNumber, a.StreetName)
	region := joinNonEmpty(" ", a.State, a.Zip)
	return joinNonEmpty(", ", street, a.City, region)
}

// Attributes are the supplemental customer fields recovered from the encoded
// address suffix. Absent values are nil/empty and omitted from JSON.
type Attributes struct {
	Age          *int     `json:"age,omitempty"`
	Occupation   string   `json:"occupation,omitempty"`
	Citizenship  string   `json:"citizenship,omitempty"`
	Tenure       string   `json:"tenure,omitempty"`
	Products     []string `json:"products,omitempty"`
	TaxResidency string   `json:"taxResidency,omitempty"`
}

// Record is a customer record. Records decoded straight from the upstream API
// have zero Attributes and may still carry the encoded suffix in
// Address.StreetName; Normalize produces the canonical form.
type Record struct {
	ID        string  `json:"_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address   Address `json:"address"`
	Attributes
}

// FullName returns "<first> <last>".
func (r Record) FullName() string {
	return r.FirstName + " " + r.LastName
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
