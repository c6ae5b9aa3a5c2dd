// Package memstore is an in-memory transactional implementation of
// store.Store. Transactions are serialised behind one mutex and run against
// a copy of the state that is swapped in on commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type state struct {
	seq   int64
	order map[uuid.UUID]int64

	centers     map[uuid.UUID]models.Center
	users       map[uuid.UUID]models.User
	parents     map[uuid.UUID]models.Parent
	children    map[uuid.UUID]models.Child
	familyLinks map[uuid.UUID]models.FamilyLink
	leads       map[uuid.UUID]models.Lead
	activities  map[uuid.UUID]models.LeadActivity
	introVisits map[uuid.UUID]models.IntroVisit
	followUps   map[uuid.UUID]models.FollowUp
	classTypes  map[uuid.UUID]models.ClassType
	curricula   map[uuid.UUID]models.Curriculum
	skills      map[uuid.UUID]models.Skill
	categories  map[uuid.UUID]models.ActivityCategory
	levels      map[uuid.UUID]models.ProgressionLevel
	batches     map[uuid.UUID]models.Batch
	mappings    map[uuid.UUID]models.BatchMapping
	enrollments map[uuid.UUID]models.Enrollment
	sessions    map[uuid.UUID]models.ClassSession
	attendance  map[uuid.UUID]models.Attendance
	discounts   map[uuid.UUID]models.Discount
	payments    map[uuid.UUID]models.Payment
	progress    map[uuid.UUID]models.SkillProgress
	attainments map[uuid.UUID]models.LevelAttainment
	reportCards map[uuid.UUID]models.ReportCard
}

func newState() *state {
	return &state{
		order:       map[uuid.UUID]int64{},
		centers:     map[uuid.UUID]models.Center{},
		users:       map[uuid.UUID]models.User{},
		parents:     map[uuid.UUID]models.Parent{},
		children:    map[uuid.UUID]models.Child{},
		familyLinks: map[uuid.UUID]models.FamilyLink{},
		leads:       map[uuid.UUID]models.Lead{},
		activities:  map[uuid.UUID]models.LeadActivity{},
		introVisits: map[uuid.UUID]models.IntroVisit{},
		followUps:   map[uuid.UUID]models.FollowUp{},
		classTypes:  map[uuid.UUID]models.ClassType{},
		curricula:   map[uuid.UUID]models.Curriculum{},
		skills:      map[uuid.UUID]models.Skill{},
		categories:  map[uuid.UUID]models.ActivityCategory{},
		levels:      map[uuid.UUID]models.ProgressionLevel{},
		batches:     map[uuid.UUID]models.Batch{},
		mappings:    map[uuid.UUID]models.BatchMapping{},
		enrollments: map[uuid.UUID]models.Enrollment{},
		sessions:    map[uuid.UUID]models.ClassSession{},
		attendance:  map[uuid.UUID]models.Attendance{},
		discounts:   map[uuid.UUID]models.Discount{},
		payments:    map[uuid.UUID]models.Payment{},
		progress:    map[uuid.UUID]models.SkillProgress{},
		attainments: map[uuid.UUID]models.LevelAttainment{},
		reportCards: map[uuid.UUID]models.ReportCard{},
	}
}

func copyMap[T any](m map[uuid.UUID]T, clone func(T) T) map[uuid.UUID]T {
	out := make(map[uuid.UUID]T, len(m))
	for k, v := range m {
		if clone != nil {
			v = clone(v)
		}
		out[k] = v
	}
	return out
}

func cloneBatch(b models.Batch) models.Batch {
	b.DaysOfWeek = append([]models.Weekday(nil), b.DaysOfWeek...)
	return b
}

func cloneReportCard(r models.ReportCard) models.ReportCard {
	r.SkillSnapshot = append([]models.SkillSnapshotEntry(nil), r.SkillSnapshot...)
	r.LevelSnapshot = append([]models.LevelSnapshotEntry(nil), r.LevelSnapshot...)
	return r
}

func (s *state) clone() *state {
	return &state{
		seq:         s.seq,
		order:       copyMap(s.order, nil),
		centers:     copyMap(s.centers, nil),
		users:       copyMap(s.users, nil),
		parents:     copyMap(s.parents, nil),
		children:    copyMap(s.children, nil),
		familyLinks: copyMap(s.familyLinks, nil),
		leads:       copyMap(s.leads, nil),
		activities:  copyMap(s.activities, nil),
		introVisits: copyMap(s.introVisits, nil),
		followUps:   copyMap(s.followUps, nil),
		classTypes:  copyMap(s.classTypes, nil),
		curricula:   copyMap(s.curricula, nil),
		skills:      copyMap(s.skills, nil),
		categories:  copyMap(s.categories, nil),
		levels:      copyMap(s.levels, nil),
		batches:     copyMap(s.batches, cloneBatch),
		mappings:    copyMap(s.mappings, nil),
		enrollments: copyMap(s.enrollments, nil),
		sessions:    copyMap(s.sessions, nil),
		attendance:  copyMap(s.attendance, nil),
		discounts:   copyMap(s.discounts, nil),
		payments:    copyMap(s.payments, nil),
		progress:    copyMap(s.progress, nil),
		attainments: copyMap(s.attainments, nil),
		reportCards: copyMap(s.reportCards, cloneReportCard),
	}
}

// Store is the in-memory store. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithTx runs fn against a working copy of the state. The copy replaces the
// committed state only when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{state: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

type tx struct {
	state *state
	now   func() time.Time
}

var _ store.Tx = (*tx)(nil)

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
}

func (t *tx) track(id uuid.UUID) {
	if _, ok := t.state.order[id]; ok {
		return
	}
	t.state.seq++
	t.state.order[id] = t.state.seq
}

func (t *tx) sortByOrder(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return t.state.order[ids[i]] < t.state.order[ids[j]] })
}

type tenantRecord interface {
	Key() uuid.UUID
	Center() uuid.UUID
	Archived() bool
}

type globalRecord interface {
	Key() uuid.UUID
	Archived() bool
}

func getScoped[T tenantRecord](m map[uuid.UUID]T, what string, centerID, id uuid.UUID, includeArchived bool) (*T, error) {
	v, ok := m[id]
	if !ok || v.Center() != centerID || (!includeArchived && v.Archived()) {
		return nil, notFound(what, id)
	}
	return &v, nil
}

func getGlobal[T globalRecord](m map[uuid.UUID]T, what string, id uuid.UUID, includeArchived bool) (*T, error) {
	v, ok := m[id]
	if !ok || (!includeArchived && v.Archived()) {
		return nil, notFound(what, id)
	}
	return &v, nil
}

// collect returns matching rows in insertion order.
func collect[T globalRecord](t *tx, m map[uuid.UUID]T, includeArchived bool, keep func(*T) bool) []*T {
	ids := make([]uuid.UUID, 0, len(m))
	for id, v := range m {
		if !includeArchived && v.Archived() {
			continue
		}
		if keep != nil && !keep(&v) {
			continue
		}
		ids = append(ids, id)
	}
	t.sortByOrder(ids)
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v := m[id]
		out = append(out, &v)
	}
	return out
}

func page[T any](items []*T, opts store.ListOptions) []*T {
	opts = opts.Normalize()
	if opts.Offset >= len(items) {
		return []*T{}
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[opts.Offset:end]
}

func reverse[T any](items []*T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// --- centers & users ---

func (t *tx) CreateCenter(ctx context.Context, c *models.Center) error {
	for _, other := range t.state.centers {
		if strings.EqualFold(other.Code, c.Code) {
			return models.Conflictf("center code %q already exists", c.Code)
		}
	}
	t.track(c.ID)
	t.state.centers[c.ID] = *c
	return nil
}

func (t *tx) GetCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	c, ok := t.state.centers[id]
	if !ok {
		return nil, notFound("center", id)
	}
	return &c, nil
}

func (t *tx) ListCenters(ctx context.Context, opts store.ListOptions) ([]*models.Center, error) {
	ids := make([]uuid.UUID, 0, len(t.state.centers))
	for id, c := range t.state.centers {
		if !opts.IncludeArchived && !c.IsActive {
			continue
		}
		ids = append(ids, id)
	}
	t.sortByOrder(ids)
	out := make([]*models.Center, 0, len(ids))
	for _, id := range ids {
		c := t.state.centers[id]
		out = append(out, &c)
	}
	return page(out, opts), nil
}

func (t *tx) CreateUser(ctx context.Context, u *models.User) error {
	for _, other := range t.state.users {
		if strings.EqualFold(other.Email, u.Email) {
			return models.Conflictf("a user with email %s already exists", u.Email)
		}
	}
	t.track(u.ID)
	t.state.users[u.ID] = *u
	return nil
}

func (t *tx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range t.state.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

// --- families ---

func (t *tx) CreateParent(ctx context.Context, p *models.Parent) error {
	t.track(p.ID)
	t.state.parents[p.ID] = *p
	return nil
}

func (t *tx) GetParent(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Parent, error) {
	return getScoped(t.state.parents, "parent", centerID, id, includeArchived)
}

func (t *tx) CreateChild(ctx context.Context, c *models.Child) error {
	t.track(c.ID)
	t.state.children[c.ID] = *c
	return nil
}

func (t *tx) GetChild(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Child, error) {
	return getScoped(t.state.children, "child", centerID, id, includeArchived)
}

func (t *tx) UpdateChild(ctx context.Context, c *models.Child) error {
	if _, ok := t.state.children[c.ID]; !ok {
		return notFound("child", c.ID)
	}
	t.state.children[c.ID] = *c
	return nil
}

func (t *tx) ListChildren(ctx context.Context, centerID uuid.UUID, f store.ChildFilter) ([]*models.Child, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := collect(t, t.state.children, f.IncludeArchived, func(c *models.Child) bool {
		return c.CenterID == centerID && (search == "" || contains(c.FullName, search))
	})
	return page(out, f.ListOptions), nil
}

func (t *tx) CreateFamilyLink(ctx context.Context, l *models.FamilyLink) error {
	for _, other := range t.state.familyLinks {
		if other.ParentID == l.ParentID && other.ChildID == l.ChildID {
			return models.Conflictf("parent is already linked to this child")
		}
	}
	t.track(l.ID)
	t.state.familyLinks[l.ID] = *l
	return nil
}

func (t *tx) UpdateFamilyLink(ctx context.Context, l *models.FamilyLink) error {
	if _, ok := t.state.familyLinks[l.ID]; !ok {
		return notFound("family link", l.ID)
	}
	t.state.familyLinks[l.ID] = *l
	return nil
}

func (t *tx) ListFamilyLinks(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.FamilyLink, error) {
	return collect(t, t.state.familyLinks, includeArchived, func(l *models.FamilyLink) bool {
		return l.CenterID == centerID && l.ChildID == childID
	}), nil
}

// --- leads ---

func (t *tx) CreateLead(ctx context.Context, l *models.Lead) error {
	t.track(l.ID)
	t.state.leads[l.ID] = *l
	return nil
}

func (t *tx) GetLead(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Lead, error) {
	return getScoped(t.state.leads, "lead", centerID, id, includeArchived)
}

// LockLead needs no extra locking: the whole transaction holds the store mutex.
func (t *tx) LockLead(ctx context.Context, centerID, id uuid.UUID) (*models.Lead, error) {
	return getScoped(t.state.leads, "lead", centerID, id, false)
}

func (t *tx) UpdateLead(ctx context.Context, l *models.Lead) error {
	if _, ok := t.state.leads[l.ID]; !ok {
		return notFound("lead", l.ID)
	}
	t.state.leads[l.ID] = *l
	return nil
}

func (t *tx) ListLeads(ctx context.Context, centerID uuid.UUID, f store.LeadFilter) ([]*models.Lead, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := collect(t, t.state.leads, f.IncludeArchived, func(l *models.Lead) bool {
		if l.CenterID != centerID {
			return false
		}
		if f.Status != nil && l.Status != *f.Status {
			return false
		}
		if f.AssignedTo != nil && (l.AssignedTo == nil || *l.AssignedTo != *f.AssignedTo) {
			return false
		}
		if search != "" && !contains(l.ChildName, search) && !contains(l.ParentName, search) &&
			!contains(l.Phone, search) && !contains(l.Email, search) {
			return false
		}
		return true
	})
	reverse(out)
	return page(out, f.ListOptions), nil
}

func (t *tx) AppendLeadActivity(ctx context.Context, a *models.LeadActivity) error {
	if _, ok := t.state.activities[a.ID]; ok {
		return models.Conflictf("activity %s already recorded", a.ID)
	}
	t.track(a.ID)
	t.state.activities[a.ID] = *a
	return nil
}

func (t *tx) ListLeadActivities(ctx context.Context, centerID, leadID uuid.UUID) ([]*models.LeadActivity, error) {
	return collect(t, t.state.activities, true, func(a *models.LeadActivity) bool {
		return a.CenterID == centerID && a.LeadID == leadID
	}), nil
}

func (t *tx) CreateIntroVisit(ctx context.Context, v *models.IntroVisit) error {
	t.track(v.ID)
	t.state.introVisits[v.ID] = *v
	return nil
}

func (t *tx) GetIntroVisit(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.IntroVisit, error) {
	return getScoped(t.state.introVisits, "intro visit", centerID, id, includeArchived)
}

func (t *tx) UpdateIntroVisit(ctx context.Context, v *models.IntroVisit) error {
	if _, ok := t.state.introVisits[v.ID]; !ok {
		return notFound("intro visit", v.ID)
	}
	t.state.introVisits[v.ID] = *v
	return nil
}

func (t *tx) ListIntroVisits(ctx context.Context, centerID, leadID uuid.UUID, includeArchived bool) ([]*models.IntroVisit, error) {
	return collect(t, t.state.introVisits, includeArchived, func(v *models.IntroVisit) bool {
		return v.CenterID == centerID && v.LeadID == leadID
	}), nil
}

func (t *tx) CreateFollowUp(ctx context.Context, f *models.FollowUp) error {
	t.track(f.ID)
	t.state.followUps[f.ID] = *f
	return nil
}

func (t *tx) GetFollowUp(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.FollowUp, error) {
	return getScoped(t.state.followUps, "follow-up", centerID, id, includeArchived)
}

func (t *tx) UpdateFollowUp(ctx context.Context, f *models.FollowUp) error {
	if _, ok := t.state.followUps[f.ID]; !ok {
		return notFound("follow-up", f.ID)
	}
	t.state.followUps[f.ID] = *f
	return nil
}

func (t *tx) ListFollowUps(ctx context.Context, centerID uuid.UUID, f store.FollowUpFilter) ([]*models.FollowUp, error) {
	out := collect(t, t.state.followUps, f.IncludeArchived, func(fu *models.FollowUp) bool {
		if fu.CenterID != centerID {
			return false
		}
		if f.LeadID != nil && fu.LeadID != *f.LeadID {
			return false
		}
		if f.Status != nil && fu.Status != *f.Status {
			return false
		}
		return f.DueBefore == nil || fu.DueAt.Before(*f.DueBefore)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return page(out, f.ListOptions), nil
}

// --- curriculum ---

func (t *tx) CreateClassType(ctx context.Context, c *models.ClassType) error {
	t.track(c.ID)
	t.state.classTypes[c.ID] = *c
	return nil
}

func (t *tx) GetClassType(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ClassType, error) {
	return getGlobal(t.state.classTypes, "class type", id, includeArchived)
}

func (t *tx) CreateCurriculum(ctx context.Context, c *models.Curriculum) error {
	t.track(c.ID)
	t.state.curricula[c.ID] = *c
	return nil
}

func (t *tx) GetCurriculum(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Curriculum, error) {
	return getGlobal(t.state.curricula, "curriculum", id, includeArchived)
}

func (t *tx) ListCurricula(ctx context.Context, centerID uuid.UUID, opts store.ListOptions) ([]*models.Curriculum, error) {
	out := collect(t, t.state.curricula, opts.IncludeArchived, func(c *models.Curriculum) bool {
		return c.VisibleTo(centerID)
	})
	return page(out, opts), nil
}

func (t *tx) CreateSkill(ctx context.Context, s *models.Skill) error {
	t.track(s.ID)
	t.state.skills[s.ID] = *s
	return nil
}

func (t *tx) GetSkill(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Skill, error) {
	return getGlobal(t.state.skills, "skill", id, includeArchived)
}

func (t *tx) ListSkills(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.Skill, error) {
	out := collect(t, t.state.skills, includeArchived, func(s *models.Skill) bool {
		return s.CurriculumID == curriculumID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (t *tx) CreateActivityCategory(ctx context.Context, c *models.ActivityCategory) error {
	t.track(c.ID)
	t.state.categories[c.ID] = *c
	return nil
}

func (t *tx) GetActivityCategory(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ActivityCategory, error) {
	return getGlobal(t.state.categories, "activity category", id, includeArchived)
}

func (t *tx) ListActivityCategories(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.ActivityCategory, error) {
	out := collect(t, t.state.categories, includeArchived, func(c *models.ActivityCategory) bool {
		return c.CurriculumID == curriculumID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (t *tx) CreateProgressionLevel(ctx context.Context, l *models.ProgressionLevel) error {
	for _, other := range t.state.levels {
		if other.CategoryID == l.CategoryID && other.LevelNumber == l.LevelNumber && !other.IsArchived {
			return models.Conflictf("level %d already exists in this category", l.LevelNumber)
		}
	}
	t.track(l.ID)
	t.state.levels[l.ID] = *l
	return nil
}

func (t *tx) GetProgressionLevel(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ProgressionLevel, error) {
	return getGlobal(t.state.levels, "progression level", id, includeArchived)
}

func (t *tx) ListProgressionLevels(ctx context.Context, categoryID uuid.UUID, includeArchived bool) ([]*models.ProgressionLevel, error) {
	out := collect(t, t.state.levels, includeArchived, func(l *models.ProgressionLevel) bool {
		return l.CategoryID == categoryID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].LevelNumber < out[j].LevelNumber })
	return out, nil
}

// --- batches ---

func (t *tx) CreateBatch(ctx context.Context, b *models.Batch) error {
	t.track(b.ID)
	t.state.batches[b.ID] = cloneBatch(*b)
	return nil
}

func (t *tx) GetBatch(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Batch, error) {
	b, err := getScoped(t.state.batches, "batch", centerID, id, includeArchived)
	if err != nil {
		return nil, err
	}
	c := cloneBatch(*b)
	return &c, nil
}

func (t *tx) UpdateBatch(ctx context.Context, b *models.Batch) error {
	if _, ok := t.state.batches[b.ID]; !ok {
		return notFound("batch", b.ID)
	}
	t.state.batches[b.ID] = cloneBatch(*b)
	return nil
}

func (t *tx) ListBatches(ctx context.Context, centerID uuid.UUID, opts store.ListOptions) ([]*models.Batch, error) {
	out := collect(t, t.state.batches, opts.IncludeArchived, func(b *models.Batch) bool {
		return b.CenterID == centerID
	})
	for i, b := range out {
		c := cloneBatch(*b)
		out[i] = &c
	}
	return page(out, opts), nil
}

func (t *tx) SaveBatchMapping(ctx context.Context, m *models.BatchMapping) error {
	for id, other := range t.state.mappings {
		if other.BatchID == m.BatchID && id != m.ID {
			m.ID = other.ID
			m.CreatedAt = other.CreatedAt
			m.CreatedBy = other.CreatedBy
		}
	}
	t.track(m.ID)
	t.state.mappings[m.ID] = *m
	return nil
}

func (t *tx) GetBatchMapping(ctx context.Context, centerID, batchID uuid.UUID) (*models.BatchMapping, error) {
	for _, m := range t.state.mappings {
		if m.BatchID == batchID && m.CenterID == centerID && !m.IsArchived {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("batch mapping for %s: %w", batchID, store.ErrNotFound)
}

// --- enrollments ---

func (t *tx) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	t.track(e.ID)
	t.state.enrollments[e.ID] = *e
	return nil
}

func (t *tx) GetEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error) {
	return getScoped(t.state.enrollments, "enrollment", centerID, id, includeArchived)
}

func (t *tx) LockEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error) {
	return getScoped(t.state.enrollments, "enrollment", centerID, id, includeArchived)
}

func (t *tx) UpdateEnrollment(ctx context.Context, e *models.Enrollment) error {
	cur, ok := t.state.enrollments[e.ID]
	if !ok {
		return notFound("enrollment", e.ID)
	}
	if cur.Version != e.Version {
		return models.Conflictf("enrollment %s was modified concurrently", e.ID)
	}
	e.Version++
	t.state.enrollments[e.ID] = *e
	return nil
}

func (t *tx) ListEnrollments(ctx context.Context, centerID uuid.UUID, f store.EnrollmentFilter) ([]*models.Enrollment, error) {
	out := collect(t, t.state.enrollments, f.IncludeArchived, func(e *models.Enrollment) bool {
		if e.CenterID != centerID {
			return false
		}
		if f.ChildID != nil && e.ChildID != *f.ChildID {
			return false
		}
		if f.BatchID != nil && e.BatchID != *f.BatchID {
			return false
		}
		return f.Status == nil || e.Status == *f.Status
	})
	return page(out, f.ListOptions), nil
}

func (t *tx) CountActiveEnrollments(ctx context.Context, centerID, batchID uuid.UUID) (int, error) {
	n := 0
	for _, e := range t.state.enrollments {
		if e.CenterID == centerID && e.BatchID == batchID && e.Status == models.EnrollmentActive && !e.IsArchived {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListLapsedEnrollments(ctx context.Context, asOf time.Time) ([]*models.Enrollment, error) {
	day := models.DateOnly(asOf)
	return collect(t, t.state.enrollments, false, func(e *models.Enrollment) bool {
		return e.Status == models.EnrollmentActive && e.EndDate != nil && models.DateOnly(*e.EndDate).Before(day)
	}), nil
}

// --- sessions & attendance ---

func (t *tx) CreateClassSession(ctx context.Context, s *models.ClassSession) error {
	t.track(s.ID)
	t.state.sessions[s.ID] = *s
	return nil
}

func (t *tx) GetClassSession(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.ClassSession, error) {
	return getScoped(t.state.sessions, "class session", centerID, id, includeArchived)
}

func (t *tx) UpdateClassSession(ctx context.Context, s *models.ClassSession) error {
	if _, ok := t.state.sessions[s.ID]; !ok {
		return notFound("class session", s.ID)
	}
	t.state.sessions[s.ID] = *s
	return nil
}

func (t *tx) ListClassSessions(ctx context.Context, centerID uuid.UUID, f store.SessionFilter) ([]*models.ClassSession, error) {
	out := collect(t, t.state.sessions, f.IncludeArchived, func(s *models.ClassSession) bool {
		if s.CenterID != centerID {
			return false
		}
		if f.BatchID != nil && s.BatchID != *f.BatchID {
			return false
		}
		day := models.DateOnly(s.SessionDate)
		if f.From != nil && day.Before(models.DateOnly(*f.From)) {
			return false
		}
		return f.To == nil || !day.After(models.DateOnly(*f.To))
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return page(out, f.ListOptions), nil
}

func (t *tx) CreateAttendance(ctx context.Context, a *models.Attendance) error {
	for _, other := range t.state.attendance {
		if other.SessionID == a.SessionID && other.ChildID == a.ChildID {
			return models.Conflictf("attendance for this child and session already exists")
		}
	}
	t.track(a.ID)
	t.state.attendance[a.ID] = *a
	return nil
}

func (t *tx) GetAttendance(ctx context.Context, centerID, id uuid.UUID) (*models.Attendance, error) {
	return getScoped(t.state.attendance, "attendance", centerID, id, true)
}

func (t *tx) FindAttendance(ctx context.Context, centerID, sessionID, childID uuid.UUID) (*models.Attendance, error) {
	for _, a := range t.state.attendance {
		if a.CenterID == centerID && a.SessionID == sessionID && a.ChildID == childID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("attendance for child %s: %w", childID, store.ErrNotFound)
}

func (t *tx) UpdateAttendance(ctx context.Context, a *models.Attendance) error {
	if _, ok := t.state.attendance[a.ID]; !ok {
		return notFound("attendance", a.ID)
	}
	t.state.attendance[a.ID] = *a
	return nil
}

func (t *tx) ListAttendance(ctx context.Context, centerID uuid.UUID, f store.AttendanceFilter) ([]*models.Attendance, error) {
	out := collect(t, t.state.attendance, f.IncludeArchived, func(a *models.Attendance) bool {
		if a.CenterID != centerID {
			return false
		}
		if f.SessionID != nil && a.SessionID != *f.SessionID {
			return false
		}
		if f.ChildID != nil && a.ChildID != *f.ChildID {
			return false
		}
		return f.EnrollmentID == nil || (a.EnrollmentID != nil && *a.EnrollmentID == *f.EnrollmentID)
	})
	return page(out, f.ListOptions), nil
}

// --- billing ---

func (t *tx) CreateDiscount(ctx context.Context, d *models.Discount) error {
	t.track(d.ID)
	t.state.discounts[d.ID] = *d
	return nil
}

func (t *tx) ListDiscounts(ctx context.Context, centerID, enrollmentID uuid.UUID, includeArchived bool) ([]*models.Discount, error) {
	return collect(t, t.state.discounts, includeArchived, func(d *models.Discount) bool {
		return d.CenterID == centerID && d.EnrollmentID == enrollmentID
	}), nil
}

func (t *tx) CreatePayment(ctx context.Context, p *models.Payment) error {
	t.track(p.ID)
	t.state.payments[p.ID] = *p
	return nil
}

func (t *tx) GetPayment(ctx context.Context, centerID, id uuid.UUID) (*models.Payment, error) {
	return getScoped(t.state.payments, "payment", centerID, id, true)
}

func (t *tx) ListPayments(ctx context.Context, centerID, enrollmentID uuid.UUID, opts store.ListOptions) ([]*models.Payment, error) {
	out := collect(t, t.state.payments, true, func(p *models.Payment) bool {
		return p.CenterID == centerID && p.EnrollmentID == enrollmentID
	})
	return page(out, opts), nil
}

// --- progress & report cards ---

func (t *tx) SaveSkillProgress(ctx context.Context, p *models.SkillProgress) error {
	for _, other := range t.state.progress {
		if other.ChildID == p.ChildID && other.SkillID == p.SkillID && other.ID != p.ID {
			p.ID = other.ID
			p.CreatedAt = other.CreatedAt
			p.CreatedBy = other.CreatedBy
		}
	}
	t.track(p.ID)
	t.state.progress[p.ID] = *p
	return nil
}

func (t *tx) GetSkillProgress(ctx context.Context, centerID, childID, skillID uuid.UUID) (*models.SkillProgress, error) {
	for _, p := range t.state.progress {
		if p.CenterID == centerID && p.ChildID == childID && p.SkillID == skillID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("skill progress for %s: %w", skillID, store.ErrNotFound)
}

func (t *tx) ListSkillProgress(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.SkillProgress, error) {
	return collect(t, t.state.progress, includeArchived, func(p *models.SkillProgress) bool {
		return p.CenterID == centerID && p.ChildID == childID
	}), nil
}

func (t *tx) CreateLevelAttainment(ctx context.Context, a *models.LevelAttainment) error {
	for _, other := range t.state.attainments {
		if other.ChildID == a.ChildID && other.ProgressionLevelID == a.ProgressionLevelID {
			return models.Conflictf("child already attained this level")
		}
	}
	t.track(a.ID)
	t.state.attainments[a.ID] = *a
	return nil
}

func (t *tx) ListLevelAttainments(ctx context.Context, centerID, childID uuid.UUID) ([]*models.LevelAttainment, error) {
	return collect(t, t.state.attainments, true, func(a *models.LevelAttainment) bool {
		return a.CenterID == centerID && a.ChildID == childID
	}), nil
}

func (t *tx) CreateReportCard(ctx context.Context, r *models.ReportCard) error {
	t.track(r.ID)
	t.state.reportCards[r.ID] = cloneReportCard(*r)
	return nil
}

func (t *tx) GetReportCard(ctx context.Context, centerID, id uuid.UUID) (*models.ReportCard, error) {
	r, err := getScoped(t.state.reportCards, "report card", centerID, id, true)
	if err != nil {
		return nil, err
	}
	c := cloneReportCard(*r)
	return &c, nil
}

func (t *tx) ListReportCards(ctx context.Context, centerID, childID uuid.UUID, opts store.ListOptions) ([]*models.ReportCard, error) {
	out := collect(t, t.state.reportCards, true, func(r *models.ReportCard) bool {
		return r.CenterID == centerID && r.ChildID == childID
	})
	for i, r := range out {
		c := cloneReportCard(*r)
		out[i] = &c
	}
	reverse(out)
	return page(out, opts), nil
}
