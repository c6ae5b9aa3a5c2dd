// Package service holds the CRM business rules. Every exported operation
// takes the acting staff member and the center it targets, runs inside one
// store transaction, and returns *models.Error values for expected failures.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
	log      *log.Logger
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		validate: newValidator(),
		now:      time.Now,
		log:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// enum accepts only known members of a closed string type
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(models.Enum)
		return ok && e.Valid()
	})
	// hhmm is a 24h "HH:MM" clock time
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	return v
}

// check runs struct-tag validation and converts failures to VALIDATION errors.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return &models.Error{Kind: models.KindValidation, Message: "invalid " + strings.Join(fields, ", "), Err: err}
	}
	return models.Validationf("invalid input: %v", err)
}

// inTx runs fn in one transaction and maps store misses to NOT_FOUND.
func (s *Service) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.store.WithTx(ctx, fn)
	if err == nil {
		return nil
	}
	if models.KindOf(err) == "" && errors.Is(err, store.ErrNotFound) {
		msg := strings.TrimSuffix(err.Error(), ": "+store.ErrNotFound.Error())
		return &models.Error{Kind: models.KindNotFound, Message: msg + " not found", Err: err}
	}
	return err
}

// stamp fills the audit columns of a new row.
func (s *Service) stamp(a *models.Audit, actor models.Actor) {
	at := s.now()
	a.ID = uuid.New()
	a.CreatedAt = at
	a.UpdatedAt = at
	a.CreatedBy = actor.Ref()
	a.UpdatedBy = actor.Ref()
}

func (s *Service) touch(a *models.Audit, actor models.Actor) {
	a.Stamp(s.now(), actor.Ref())
}

func (s *Service) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
