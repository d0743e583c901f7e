package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/openforce/backend/internal/domain/models"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// locatorTTL bounds how long an unconsumed result set stays resumable
const locatorTTL = 15 * time.Minute

type locatorEntry struct {
	userEmail string
	remaining []models.SObject
	totalSize int
	batchSize int
	expiresAt time.Time
}

// QueryLocatorService holds result sets that exceeded one batch. Each locator
// is single-use: consuming it returns the next batch and, when more records
// remain, a fresh locator. A cron sweep drops expired entries.
type QueryLocatorService struct {
	mu      sync.Mutex
	entries map[string]*locatorEntry
	cron    *cron.Cron
}

// NewQueryLocatorService creates a new QueryLocatorService
func NewQueryLocatorService() *QueryLocatorService {
	return &QueryLocatorService{entries: make(map[string]*locatorEntry)}
}

// StartSweeper begins the periodic expiry sweep
func (s *QueryLocatorService) StartSweeper() {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("*/5 * * * *", s.sweep); err != nil {
		log.Printf("query locator sweeper not scheduled: %v", err)
		return
	}
	s.cron.Start()
}

// StopSweeper stops the expiry sweep
func (s *QueryLocatorService) StopSweeper() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Store parks the remaining records and returns a locator for them
func (s *QueryLocatorService) Store(userEmail string, remaining []models.SObject, totalSize, batchSize int) string {
	locator := uuid.NewString()
	s.mu.Lock()
	s.entries[locator] = &locatorEntry{
		userEmail: userEmail,
		remaining: remaining,
		totalSize: totalSize,
		batchSize: batchSize,
		expiresAt: time.Now().Add(locatorTTL),
	}
	s.mu.Unlock()
	return locator
}

// Next consumes a locator and returns the next page. A locator belonging to a
// different user behaves exactly like a missing one.
func (s *QueryLocatorService) Next(userEmail, locator string) (*models.QueryResult, error) {
	s.mu.Lock()
	entry, ok := s.entries[locator]
	if ok {
		delete(s.entries, locator)
	}
	s.mu.Unlock()

	if !ok || entry.userEmail != userEmail || time.Now().After(entry.expiresAt) {
		return nil, apperrors.NewInvalidLocatorError(locator)
	}

	batch := entry.remaining
	var rest []models.SObject
	if len(batch) > entry.batchSize {
		rest = batch[entry.batchSize:]
		batch = batch[:entry.batchSize]
	}

	result := &models.QueryResult{
		TotalSize: entry.totalSize,
		Done:      len(rest) == 0,
		Records:   batch,
	}
	if len(rest) > 0 {
		next := s.Store(userEmail, rest, entry.totalSize, entry.batchSize)
		result.NextRecordsURL = nextRecordsPath(next)
	}
	return result, nil
}

func (s *QueryLocatorService) sweep() {
	now := time.Now()
	s.mu.Lock()
	for locator, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, locator)
		}
	}
	s.mu.Unlock()
}

func nextRecordsPath(locator string) string {
	return "/services/data/query/" + locator
}
