package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementation ---

// mockRepo is an in-memory Repository. The embedded interface panics on any
// method a test forgot to stub.
type mockRepo struct {
	Repository
	users      map[int64]*User
	caregivers map[int64]*CaregiverProfile
	relatives  map[int64][]int64
	nextID     int64
	createErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:      make(map[int64]*User),
		caregivers: make(map[int64]*CaregiverProfile),
		relatives:  make(map[int64][]int64),
	}
}

func (m *mockRepo) Create(_ context.Context, u *User, cg *CaregiverProfile) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	if cg != nil {
		cg.UserID = u.ID
		m.caregivers[u.ID] = cg
	}
	return u.ID, nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context) ([]Summary, error) {
	summaries := make([]Summary, 0, len(m.users))
	for id := range m.users {
		s, _ := m.SummaryByID(context.Background(), id)
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	delete(m.users, id)
	delete(m.caregivers, id)
	return nil
}

func (m *mockRepo) GetCaregiver(_ context.Context, userID int64) (*CaregiverProfile, error) {
	cg, ok := m.caregivers[userID]
	if !ok {
		return nil, nil
	}
	cp := *cg
	return &cp, nil
}

func (m *mockRepo) UpsertCaregiver(_ context.Context, cg *CaregiverProfile) error {
	cp := *cg
	m.caregivers[cg.UserID] = &cp
	return nil
}

func (m *mockRepo) SummaryByID(_ context.Context, id int64) (*Summary, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	s := &Summary{ID: u.ID, Name: u.Name, Surname: u.Surname, Email: u.Email, Pic: u.Pic}
	if cg, ok := m.caregivers[id]; ok {
		field := cg.Field
		s.Field = &field
	}
	return s, nil
}

func (m *mockRepo) Relatives(_ context.Context, userID int64) ([]Summary, error) {
	summaries := make([]Summary, 0, len(m.relatives[userID]))
	for _, id := range m.relatives[userID] {
		s, err := m.SummaryByID(context.Background(), id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

func (m *mockRepo) Caregivers(_ context.Context, _ int64) ([]Summary, error) {
	return nil, nil
}

func (m *mockRepo) Patients(_ context.Context, _ int64) ([]Summary, error) {
	return nil, nil
}

// --- Helpers ---

func strptr(s string) *string { return &s }

func newRegisterRequest(email string) RegisterRequest {
	return RegisterRequest{
		Email:   email,
		Name:    "Anna",
		Surname: "Rossi",
		Birth:   time.Date(1960, 3, 15, 0, 0, 0, 0, time.UTC),
		Pic:     "https://example.com/anna.jpg",
		Sex:     "F",
	}
}

// --- Tests ---

func TestRegister_Basic(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", u.Email)

	cg, err := repo.GetCaregiver(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, cg)
}

func TestRegister_Caregiver(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	req := newRegisterRequest("doc@example.com")
	req.Field = strptr("Cardiology")
	req.Place = strptr("City Hospital")

	id, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	cg, err := repo.GetCaregiver(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, cg)
	assert.Equal(t, "Cardiology", cg.Field)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	var dupErr *AlreadyRegisteredError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, id, dupErr.Existing.ID)
}

func TestRegister_ExtrasWithoutField(t *testing.T) {
	svc := NewService(newMockRepo())

	req := newRegisterRequest("doc@example.com")
	req.Place = strptr("City Hospital")

	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrFieldRequired)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Update(context.Background(), UpdateRequest{ID: 42, Name: strptr("Bob")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_Basic(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	req := newRegisterRequest("anna@example.com")
	req.City = strptr("Milan")
	id, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateRequest{
		ID:      id,
		Name:    strptr("Annamaria"),
		Surname: strptr(""),
		City:    strptr(""),
		Address: strptr("Via Roma 1"),
	})
	require.NoError(t, err)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Annamaria", u.Name)
	// Empty strings leave required fields alone but clear optional ones.
	assert.Equal(t, "Rossi", u.Surname)
	assert.Nil(t, u.City)
	require.NotNil(t, u.Address)
	assert.Equal(t, "Via Roma 1", *u.Address)
}

func TestUpdate_CaregiverExtrasOnNonCaregiver(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateRequest{ID: id, Bio: strptr("hi")})
	require.ErrorIs(t, err, ErrNotCaregiver)
}

func TestUpdate_CaregiverExtras(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	req := newRegisterRequest("doc@example.com")
	req.Field = strptr("Cardiology")
	id, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateRequest{
		ID:    id,
		Field: strptr("Geriatrics"),
		Bio:   strptr("30 years of home care"),
	})
	require.NoError(t, err)

	cg, err := repo.GetCaregiver(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Geriatrics", cg.Field)
	require.NotNil(t, cg.Bio)
	assert.Equal(t, "30 years of home care", *cg.Bio)
}

func TestUpdate_EmptyFieldRejected(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	req := newRegisterRequest("doc@example.com")
	req.Field = strptr("Cardiology")
	id, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateRequest{ID: id, Field: strptr("")})
	require.ErrorIs(t, err, ErrFieldRequired)
}

func TestGet_Profile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	docReq := newRegisterRequest("doc@example.com")
	docReq.Field = strptr("Cardiology")
	docID, err := svc.Register(context.Background(), docReq)
	require.NoError(t, err)

	annaID, err := svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	require.NoError(t, err)
	repo.users[annaID].PCPhysicianID = &docID

	p, err := svc.Get(context.Background(), annaID)
	require.NoError(t, err)
	assert.Nil(t, p.Caregiver)
	require.NotNil(t, p.PCPhysician)
	assert.Equal(t, docID, p.PCPhysician.ID)
	assert.Nil(t, p.Patients)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.Register(context.Background(), newRegisterRequest("anna@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id))
	require.ErrorIs(t, svc.Delete(context.Background(), id), ErrNotFound)
}
