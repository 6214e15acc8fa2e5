package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/suplementor/backend/internal/domain"
)

// testCatalog is a small catalog covering every scoring and interaction path
func testCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		{
			ID:            "bacopa",
			Name:          "Bacopa Monnieri",
			LocalizedName: "Bakopa drobnolistna",
			Category:      domain.CategoryNootropic,
			EvidenceLevel: domain.EvidenceStrong,
			ClinicalEvidence: domain.ClinicalEvidence{
				TotalStudies: 120, RCTCount: 15, MetaAnalyses: 3,
			},
			ActiveCompounds: []domain.ActiveCompound{{Name: "Bacosides"}},
			ClinicalApplications: []domain.ClinicalApplication{
				{Condition: "Memory enhancement", LocalizedCondition: "Poprawa pamięci", EffectivenessRating: 9, EvidenceLevel: domain.EvidenceStrong},
			},
			Mechanisms: []domain.Mechanism{
				{Pathway: "Cholinergic modulation", TargetSystems: []string{"memory", "nervous_system"}, TimeToEffect: "8-12 weeks"},
			},
			Safety: domain.SafetyProfile{
				PregnancyCategory:     "C",
				BreastfeedingSafety:   "caution",
				ElderlyConsiderations: []string{"Start with a lower dose"},
			},
			SideEffects: []domain.SideEffect{
				{Effect: "Nausea", Frequency: "common", Severity: "moderate", Management: "Take with food"},
			},
			Dosage: domain.DosageGuideline{
				TherapeuticRange: domain.DosageRange{Min: 300, Max: 600, Unit: "mg"},
				Timing:           []string{"morning"},
				WithFood:         true,
			},
			Economics: domain.EconomicData{AverageMonthlyCost: 20, Currency: "USD", CostEffectiveness: domain.CostGood},
			Quality:   domain.QualityConsiderations{Forms: []string{"capsule"}, QualityMarkers: []string{"standardized extract"}},
			Tags:      []string{"cognition", "ayurveda"},
		},
		{
			ID:            "vitamin-c",
			Name:          "Vitamin C",
			Category:      domain.CategoryVitamin,
			EvidenceLevel: domain.EvidenceModerate,
			ClinicalEvidence: domain.ClinicalEvidence{
				TotalStudies: 400, RCTCount: 20, MetaAnalyses: 2,
			},
			ActiveCompounds: []domain.ActiveCompound{{Name: "Ascorbic acid"}},
			ClinicalApplications: []domain.ClinicalApplication{
				{Condition: "Immune support", EffectivenessRating: 6, EvidenceLevel: domain.EvidenceModerate},
			},
			Mechanisms: []domain.Mechanism{
				{Pathway: "Antioxidant activity", TargetSystems: []string{"immune"}},
			},
			Safety:    domain.SafetyProfile{PregnancyCategory: "A", BreastfeedingSafety: "safe", PediatricApproved: true},
			Dosage:    domain.DosageGuideline{TherapeuticRange: domain.DosageRange{Min: 500, Max: 1000, Unit: "mg"}},
			Economics: domain.EconomicData{AverageMonthlyCost: 8, Currency: "USD", CostEffectiveness: domain.CostExcellent},
			Quality:   domain.QualityConsiderations{Forms: []string{"tablet", "powder"}, QualityMarkers: []string{"organic"}},
		},
		{
			ID:            "st-johns-wort",
			Name:          "St. John's Wort",
			Category:      domain.CategoryHerb,
			EvidenceLevel: domain.EvidenceInsufficient,
			ClinicalEvidence: domain.ClinicalEvidence{
				TotalStudies: 10,
			},
			ClinicalApplications: []domain.ClinicalApplication{
				{Condition: "Mood support", EffectivenessRating: 4, EvidenceLevel: domain.EvidenceWeak},
			},
			Interactions: []domain.InteractionRule{
				{Substance: "Sertraline", Type: "antagonistic", Severity: "severe", Mechanism: "Serotonin syndrome risk", Recommendation: "Do not combine"},
			},
			Safety:    domain.SafetyProfile{PregnancyCategory: "D", BreastfeedingSafety: "unsafe"},
			Dosage:    domain.DosageGuideline{TherapeuticRange: domain.DosageRange{Min: 300, Max: 900, Unit: "mg"}},
			Economics: domain.EconomicData{AverageMonthlyCost: 40, Currency: "USD", CostEffectiveness: domain.CostFair},
			Quality:   domain.QualityConsiderations{Forms: []string{"gelatin capsule"}},
		},
		{
			ID:            "magnesium",
			Name:          "Magnesium",
			Category:      domain.CategoryMineral,
			EvidenceLevel: domain.EvidenceModerate,
			ClinicalEvidence: domain.ClinicalEvidence{
				TotalStudies: 200, RCTCount: 10,
			},
			ClinicalApplications: []domain.ClinicalApplication{
				{Condition: "Sleep quality", EffectivenessRating: 6, EvidenceLevel: domain.EvidenceModerate},
			},
			Mechanisms: []domain.Mechanism{
				{Pathway: "GABA receptor support", TargetSystems: []string{"Nervous-System", "muscle"}},
			},
			Interactions: []domain.InteractionRule{
				{Substance: "Zinc", Type: "competitive", Severity: "moderate", Mechanism: "Absorption competition", SeparationRequired: true, MinimumSeparation: "2 hours"},
			},
			Safety:    domain.SafetyProfile{PregnancyCategory: "A", BreastfeedingSafety: "safe", PediatricApproved: true},
			Dosage:    domain.DosageGuideline{TherapeuticRange: domain.DosageRange{Min: 200, Max: 400, Unit: "mg"}, Timing: []string{"evening"}},
			Economics: domain.EconomicData{AverageMonthlyCost: 12, Currency: "USD", CostEffectiveness: domain.CostExcellent},
		},
		{
			ID:            "zinc",
			Name:          "Zinc",
			Category:      domain.CategoryMineral,
			EvidenceLevel: domain.EvidenceModerate,
			ClinicalApplications: []domain.ClinicalApplication{
				{Condition: "Immune support", EffectivenessRating: 7, EvidenceLevel: domain.EvidenceModerate},
			},
			Mechanisms: []domain.Mechanism{
				{Pathway: "Enzyme cofactor", TargetSystems: []string{"immune"}},
			},
			Safety:    domain.SafetyProfile{PregnancyCategory: "A", PediatricApproved: true},
			Dosage:    domain.DosageGuideline{TherapeuticRange: domain.DosageRange{Min: 15, Max: 30, Unit: "mg"}},
			Economics: domain.EconomicData{AverageMonthlyCost: 6, Currency: "USD", CostEffectiveness: domain.CostGood},
		},
	}
}

func testIndex(t *testing.T) *CatalogIndex {
	t.Helper()
	idx, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("BuildCatalogIndex: %v", err)
	}
	return idx
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	getError error
	setError error
	gets     int
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]interface{})}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockEvidenceClient is a mock implementation of domain.EvidenceClient
type MockEvidenceClient struct {
	mu      sync.Mutex
	summary *domain.EvidenceSummary
	err     error
	delay   time.Duration
	calls   int
}

func (m *MockEvidenceClient) LookupEvidence(ctx context.Context, substance, condition string) (*domain.EvidenceSummary, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *MockEvidenceClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockGraphExporter records exported graphs
type MockGraphExporter struct {
	mu       sync.Mutex
	exported []*domain.InteractionGraph
	err      error
}

func (m *MockGraphExporter) ExportGraph(ctx context.Context, graph *domain.InteractionGraph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported = append(m.exported, graph)
	return m.err
}
