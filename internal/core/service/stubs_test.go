package service

import (
	"context"
	"sort"
	"sync"

	"github.com/hwidlock/license-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	// licenses lets ListWithLicenses join against a license stub.
	licenses *stubLicenseRepo
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) seed(id int64, username string, role domain.Role) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{ID: id, Username: username, Role: role}
	r.users[id] = u
	if id > r.nextID {
		r.nextID = id
	}
	return cloneUser(u)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = r.nextID
	r.users[created.ID] = created
	return cloneUser(created), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := cloneUser(u)
	clone.PasswordHash = ""
	return clone, nil
}

func (r *stubUserRepo) ListWithLicenses(ctx context.Context) ([]domain.UserWithLicense, error) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.UserWithLicense, 0, len(ids))
	for _, id := range ids {
		u, _ := r.FindByID(ctx, id)
		row := domain.UserWithLicense{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
		if r.licenses != nil {
			if l, err := r.licenses.FindByUserID(ctx, id); err == nil {
				row.License = &domain.LicenseSummary{ID: l.ID, LicenseKey: l.LicenseKey, HWID: l.HWID}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// In-memory licenses. BindHWID mirrors the conditional UPDATE: the check and
// the write happen under one lock.
// ---------------------------------------------------------------------------

type stubLicenseRepo struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*domain.License
	createErr error
	findErr   error
	// beforeBind runs inside BindHWID before the lock is taken.
	beforeBind func()
}

func newStubLicenseRepo() *stubLicenseRepo {
	return &stubLicenseRepo{byID: make(map[int64]*domain.License)}
}

func cloneLicense(l *domain.License) *domain.License {
	clone := *l
	if l.HWID != nil {
		h := *l.HWID
		clone.HWID = &h
	}
	return &clone
}

func (r *stubLicenseRepo) Create(_ context.Context, license *domain.License) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byID {
		if l.UserID == license.UserID {
			return domain.ErrAlreadyLicensed
		}
		if l.LicenseKey == license.LicenseKey {
			return domain.ErrDuplicateLicenseKey
		}
	}
	r.nextID++
	license.ID = r.nextID
	license.HWID = nil
	r.byID[license.ID] = cloneLicense(license)
	return nil
}

func (r *stubLicenseRepo) FindByUserID(_ context.Context, userID int64) (*domain.License, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byID {
		if l.UserID == userID {
			return cloneLicense(l), nil
		}
	}
	return nil, domain.ErrLicenseNotFound
}

func (r *stubLicenseRepo) FindByHWID(_ context.Context, hwid string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *domain.License
	for _, l := range r.byID {
		if l.HWID != nil && *l.HWID == hwid && (found == nil || l.ID < found.ID) {
			found = l
		}
	}
	if found == nil {
		return nil, domain.ErrLicenseNotFound
	}
	return cloneLicense(found), nil
}

func (r *stubLicenseRepo) BindHWID(_ context.Context, userID int64, hwid string) (bool, error) {
	if r.beforeBind != nil {
		r.beforeBind()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byID {
		if l.HWID != nil && *l.HWID == hwid {
			return false, domain.ErrHWIDInUse
		}
	}
	for _, l := range r.byID {
		if l.UserID == userID && l.HWID == nil {
			h := hwid
			l.HWID = &h
			return true, nil
		}
	}
	return false, nil
}

func (r *stubLicenseRepo) Delete(_ context.Context, id int64) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	delete(r.byID, id)
	return l, nil
}

// ---------------------------------------------------------------------------
// Audit recorder
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.LicenseEvent
}

func (a *recordingAudit) Record(e domain.LicenseEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) types() []domain.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.EventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}
