package services

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// CompositeService executes a batch of CRUD sub-requests sequentially.
// With AllOrNone the first failure rolls back the records created earlier in
// the batch; otherwise each sub-request succeeds or fails on its own.
type CompositeService struct {
	persistence *PersistenceService
}

// NewCompositeService creates a new CompositeService
func NewCompositeService(persistence *PersistenceService) *CompositeService {
	return &CompositeService{persistence: persistence}
}

// Execute runs the composite request for the user
func (s *CompositeService) Execute(ctx context.Context, user *models.User, req models.CompositeRequest) []models.CompositeSubResult {
	results := make([]models.CompositeSubResult, 0, len(req.SubRequests))
	// Records created so far, for AllOrNone rollback
	var created []struct{ object, id string }
	refs := make(map[string]string)

	for _, sub := range req.SubRequests {
		result := s.executeOne(ctx, user, sub, refs)
		results = append(results, result)

		if result.StatusCode < 300 {
			if body, ok := result.Body.(map[string]interface{}); ok {
				if id, ok := body[constants.ColumnID].(string); ok {
					created = append(created, struct{ object, id string }{sub.Object, id})
					if sub.ReferenceID != "" {
						refs[sub.ReferenceID] = id
					}
				}
			}
			continue
		}

		if req.AllOrNone {
			for i := len(created) - 1; i >= 0; i-- {
				if err := s.persistence.Delete(ctx, user, created[i].object, created[i].id); err != nil {
					// Rollback is best effort; surface nothing beyond the log
					log.Printf("composite rollback failed for %s %s: %v", created[i].object, created[i].id, err)
				}
			}
			// Mark the untouched remainder as skipped
			for i := len(results); i < len(req.SubRequests); i++ {
				results = append(results, models.CompositeSubResult{
					ReferenceID: req.SubRequests[i].ReferenceID,
					StatusCode:  http.StatusConflict,
					Body:        apperrors.ErrorResponse{Code: "PROCESSING_HALTED", Message: "transaction rolled back by an earlier failure"},
				})
			}
			return results
		}
	}
	return results
}

func (s *CompositeService) executeOne(ctx context.Context, user *models.User, sub models.CompositeSubRequest, refs map[string]string) models.CompositeSubResult {
	id := resolveReference(sub.ID, refs)
	body := sub.Body
	if body != nil {
		body = body.Clone()
		for key, value := range body {
			if text, ok := value.(string); ok {
				body[key] = resolveReference(text, refs)
			}
		}
	}

	switch strings.ToUpper(sub.Method) {
	case http.MethodPost:
		newID, err := s.persistence.Create(ctx, user, sub.Object, body)
		if err != nil {
			return errorResult(sub, err)
		}
		return models.CompositeSubResult{
			ReferenceID: sub.ReferenceID,
			StatusCode:  http.StatusCreated,
			Body:        map[string]interface{}{constants.ColumnID: newID, "success": true},
		}

	case http.MethodPatch:
		if err := s.persistence.Update(ctx, user, sub.Object, id, body); err != nil {
			return errorResult(sub, err)
		}
		return models.CompositeSubResult{ReferenceID: sub.ReferenceID, StatusCode: http.StatusNoContent}

	case http.MethodDelete:
		if err := s.persistence.Delete(ctx, user, sub.Object, id); err != nil {
			return errorResult(sub, err)
		}
		return models.CompositeSubResult{ReferenceID: sub.ReferenceID, StatusCode: http.StatusNoContent}

	case http.MethodGet:
		record, err := s.persistence.Get(ctx, user, sub.Object, id)
		if err != nil {
			return errorResult(sub, err)
		}
		return models.CompositeSubResult{ReferenceID: sub.ReferenceID, StatusCode: http.StatusOK, Body: record}
	}

	return models.CompositeSubResult{
		ReferenceID: sub.ReferenceID,
		StatusCode:  http.StatusMethodNotAllowed,
		Body:        apperrors.ErrorResponse{Code: "INVALID_METHOD", Message: "unsupported method " + sub.Method},
	}
}

// resolveReference substitutes @{refId} with the ID created earlier in the batch
func resolveReference(value string, refs map[string]string) string {
	if strings.HasPrefix(value, "@{") && strings.HasSuffix(value, "}") {
		if id, ok := refs[value[2:len(value)-1]]; ok {
			return id
		}
	}
	return value
}

func errorResult(sub models.CompositeSubRequest, err error) models.CompositeSubResult {
	return models.CompositeSubResult{
		ReferenceID: sub.ReferenceID,
		StatusCode:  apperrors.GetHTTPStatus(err),
		Body:        apperrors.ToResponse(err),
	}
}
