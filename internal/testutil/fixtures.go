// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// RawOption customizes a raw fixture row.
type RawOption func(*entities.RawRecord)

// WithProvider sets the provider identity.
func WithProvider(npi, name string) RawOption {
	return func(r *entities.RawRecord) {
		r.RenderingNPI = npi
		r.ProviderLegalName = name
	}
}

// WithDeliverySystem sets the delivery system.
func WithDeliverySystem(ds string) RawOption {
	return func(r *entities.RawRecord) {
		r.DeliverySystem = ds
	}
}

// WithAgeGroup sets the age group.
func WithAgeGroup(age string) RawOption {
	return func(r *entities.RawRecord) {
		r.AgeGroup = age
	}
}

// WithProviderType sets the provider type.
func WithProviderType(pt string) RawOption {
	return func(r *entities.RawRecord) {
		r.ProviderType = pt
	}
}

// WithUsers sets the adv, prev, txmt and exam user counts.
func WithUsers(adv, prev, txmt, exam string) RawOption {
	return func(r *entities.RawRecord) {
		r.Counts.AdvUsers = adv
		r.Counts.PrevUsers = prev
		r.Counts.TxmtUsers = txmt
		r.Counts.ExamUsers = exam
	}
}

// WithServices sets the adv, prev, txmt and exam service counts.
func WithServices(adv, prev, txmt, exam string) RawOption {
	return func(r *entities.RawRecord) {
		r.Counts.AdvServices = adv
		r.Counts.PrevServices = prev
		r.Counts.TxmtServices = txmt
		r.Counts.ExamServices = exam
	}
}

// NewRawRecord returns a well-formed 2018 row for a single provider,
// with 100 users and 500 services unless overridden.
func NewRawRecord(opts ...RawOption) *entities.RawRecord {
	r := &entities.RawRecord{
		Categorical: entities.Categorical{
			Year:              "2018",
			DeliverySystem:    "FFS",
			ProviderType:      "Dentist",
			AgeGroup:          "AGE 0-20",
			RenderingNPI:      "1000000001",
			ProviderLegalName: "SMILE DENTAL GROUP",
		},
		Counts: entities.ServiceCountText{
			AdvUsers:     "100",
			AdvServices:  "100",
			PrevUsers:    "80",
			PrevServices: "200",
			TxmtUsers:    "40",
			TxmtServices: "150",
			ExamUsers:    "50",
			ExamServices: "50",
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
