package services

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/formula"
	"github.com/openforce/backend/pkg/ids"
)

// MetadataService owns the object schema. Objects are registered at startup
// or through the metadata API; the relationship index is derived from the
// schema as a whole and republished with an atomic swap on every change, so
// queries in flight keep reading a consistent snapshot.
type MetadataService struct {
	mu      sync.RWMutex
	objects map[string]models.ObjectDef

	relationships atomic.Pointer[models.RelationshipIndex]

	idGen         *ids.Generator
	formulaEngine *formula.Engine
}

// NewMetadataService creates an empty MetadataService
func NewMetadataService(idGen *ids.Generator, formulaEngine *formula.Engine) *MetadataService {
	s := &MetadataService{
		objects:       make(map[string]models.ObjectDef),
		idGen:         idGen,
		formulaEngine: formulaEngine,
	}
	s.relationships.Store(models.BuildRelationshipIndex(nil))
	return s
}

// RegisterObject validates and installs an object definition, then rebuilds
// the relationship index
func (s *MetadataService) RegisterObject(def models.ObjectDef) error {
	if def.APIName == "" {
		return apperrors.NewValidationError("api_name", "object API name is required")
	}
	for _, f := range def.Fields {
		if f.Type.IsReference() && f.ReferenceTo == "" {
			return apperrors.NewValidationError(f.APIName,
				fmt.Sprintf("reference field '%s' must declare reference_to", f.APIName))
		}
	}
	// Validation rule formulas must at least parse; evaluation problems are
	// handled per write.
	for _, rule := range def.ValidationRules {
		if err := s.formulaEngine.Validate(rule.Formula); err != nil {
			return apperrors.NewValidationError(rule.Name,
				fmt.Sprintf("validation rule '%s' does not parse: %v", rule.Name, err))
		}
	}

	s.mu.Lock()
	s.objects[def.APIName] = def
	s.rebuildIndexLocked()
	s.mu.Unlock()

	if def.KeyPrefix != "" && s.idGen != nil {
		s.idGen.Register(def.APIName, def.KeyPrefix)
	}
	return nil
}

// RemoveObject deletes an object definition and rebuilds the index
func (s *MetadataService) RemoveObject(apiName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[apiName]; !ok {
		return apperrors.NewNotFoundError("object", apiName)
	}
	delete(s.objects, apiName)
	s.rebuildIndexLocked()
	return nil
}

// rebuildIndexLocked derives the relationship index from the full schema and
// publishes it. Callers hold s.mu.
func (s *MetadataService) rebuildIndexLocked() {
	all := make([]models.ObjectDef, 0, len(s.objects))
	for _, def := range s.objects {
		all = append(all, def)
	}
	s.relationships.Store(models.BuildRelationshipIndex(all))
}

// Object returns one object definition by API name
func (s *MetadataService) Object(apiName string) (*models.ObjectDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.objects[apiName]
	if !ok {
		return nil, false
	}
	return &def, true
}

// Objects returns every registered object definition
func (s *MetadataService) Objects() []models.ObjectDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ObjectDef, 0, len(s.objects))
	for _, def := range s.objects {
		out = append(out, def)
	}
	return out
}

// Relationships returns the current relationship index snapshot
func (s *MetadataService) Relationships() *models.RelationshipIndex {
	return s.relationships.Load()
}

// TableFor maps an object API name to its storage table
func (s *MetadataService) TableFor(objectAPIName string) string {
	return constants.TableForObject(objectAPIName)
}
