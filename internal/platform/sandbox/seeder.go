// Package sandbox generates reproducible demo data for local environments:
// a doctor directory and a product catalog with realistic names and prices.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/platform/store"
)

// SeedConfig controls the volume of generated data. The same Seed always
// produces the same rows.
type SeedConfig struct {
	DoctorCount  int
	ProductCount int
	Seed         int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		DoctorCount:  12,
		ProductCount: 20,
		Seed:         1,
	}
}

// SeedResult reports how many rows were written per table.
type SeedResult struct {
	Doctors  int `json:"doctors"`
	Products int `json:"products"`
}

var (
	givenNames  = []string{"Amara", "Ben", "Chen", "Dana", "Elif", "Farid", "Grace", "Hugo", "Ines", "Jonas", "Keiko", "Luis", "Maya", "Noah", "Olu", "Priya"}
	familyNames = []string{"Okafor", "Schmidt", "Tanaka", "Garcia", "Novak", "Haddad", "Kowalski", "Singh", "Moreau", "Lindqvist", "Costa", "Reyes"}
	specialties = []string{"Cardiology", "Dermatology", "Endocrinology", "Family Medicine", "Gastroenterology", "Neurology", "Oncology", "Orthopedics", "Pediatrics", "Psychiatry"}
	hospitals   = []string{"St. Mary Medical Center", "City General Hospital", "Riverside Clinic", "Northgate Health", "Lakeside University Hospital"}
	languages   = []string{"English", "Spanish", "French", "Hindi", "Arabic", "Mandarin", "German", "Portuguese"}
)

type productDef struct {
	title       string
	description string
	minCents    int64
	maxCents    int64
}

var productDefs = []productDef{
	{"Digital Thermometer", "Fast oral and underarm readings", 899, 2499},
	{"Blood Pressure Monitor", "Upper arm cuff with memory for two users", 2999, 8999},
	{"Pulse Oximeter", "Fingertip SpO2 and heart rate", 1499, 4999},
	{"First Aid Kit", "120 piece home and travel kit", 1999, 3999},
	{"Compression Socks", "Graduated 15-20 mmHg, pair", 999, 2499},
	{"Glucose Test Strips", "Box of 50 strips", 1799, 3499},
	{"Heating Pad", "Moist and dry heat with auto shut-off", 2499, 4999},
	{"Knee Brace", "Adjustable hinged support", 1999, 5999},
	{"Vitamin D3", "2000 IU softgels, 120 count", 799, 1999},
	{"Nebulizer", "Portable mesh nebulizer", 3999, 9999},
}

// DataGenerator produces rows from a seeded source.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) GenerateDoctor() doctor.Doctor {
	langs := []string{"English"}
	if g.rng.Intn(2) == 0 {
		if extra := g.pick(languages); extra != "English" {
			langs = append(langs, extra)
		}
	}
	// Ratings between 3.0 and 5.0 in tenths.
	rating := decimal.New(int64(30+g.rng.Intn(21)), -1)
	return doctor.Doctor{
		Name:      fmt.Sprintf("Dr. %s %s", g.pick(givenNames), g.pick(familyNames)),
		Specialty: g.pick(specialties),
		Hospital:  g.pick(hospitals),
		Languages: langs,
		Rating:    rating,
	}
}

func (g *DataGenerator) GenerateProduct() product.Product {
	def := productDefs[g.rng.Intn(len(productDefs))]
	cents := def.minCents + g.rng.Int63n(def.maxCents-def.minCents+1)
	return product.Product{
		Title:       def.title,
		Description: def.description,
		Price:       decimal.New(cents, -2),
		// Roughly one in eight is out of stock.
		Available: g.rng.Intn(8) != 0,
	}
}

// Seeder writes generated rows through a store client.
type Seeder struct {
	config SeedConfig
	client store.Client
}

func NewSeeder(client store.Client, config SeedConfig) *Seeder {
	return &Seeder{config: config, client: client}
}

func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	gen := NewDataGenerator(s.config.Seed)

	doctors := make([]doctor.Doctor, 0, s.config.DoctorCount)
	for i := 0; i < s.config.DoctorCount; i++ {
		doctors = append(doctors, gen.GenerateDoctor())
	}
	products := make([]product.Product, 0, s.config.ProductCount)
	for i := 0; i < s.config.ProductCount; i++ {
		products = append(products, gen.GenerateProduct())
	}

	result := &SeedResult{}
	if len(doctors) > 0 {
		if err := s.client.Insert(ctx, doctor.Table, doctors, nil); err != nil {
			return nil, fmt.Errorf("seed doctors: %w", err)
		}
		result.Doctors = len(doctors)
	}
	if len(products) > 0 {
		if err := s.client.Insert(ctx, product.Table, products, nil); err != nil {
			return nil, fmt.Errorf("seed products: %w", err)
		}
		result.Products = len(products)
	}
	return result, nil
}
