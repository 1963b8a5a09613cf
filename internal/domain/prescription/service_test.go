package prescription

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipex/server/internal/domain/user"
)

// --- Mock implementations ---

type mockUserRepo struct {
	user.Repository
	users      map[int64]*user.User
	caregivers map[int64]bool
	patients   map[[2]int64]bool // caregiver, patient
}

func newUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:      make(map[int64]*user.User),
		caregivers: make(map[int64]bool),
		patients:   make(map[[2]int64]bool),
	}
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetCaregiver(_ context.Context, userID int64) (*user.CaregiverProfile, error) {
	if !m.caregivers[userID] {
		return nil, nil
	}
	return &user.CaregiverProfile{UserID: userID, Field: "General"}, nil
}

func (m *mockUserRepo) HasPatient(_ context.Context, caregiverID, patientID int64) (bool, error) {
	return m.patients[[2]int64{caregiverID, patientID}], nil
}

func (m *mockUserRepo) SummaryByID(_ context.Context, id int64) (*user.Summary, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &user.Summary{ID: u.ID, Name: u.Name}, nil
}

type mockPrescriptionRepo struct {
	ingredients   map[int64]*Ingredient
	prescriptions map[int64]*Prescription
	nextID        int64
}

func newPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{
		ingredients:   make(map[int64]*Ingredient),
		prescriptions: make(map[int64]*Prescription),
	}
}

func (m *mockPrescriptionRepo) CreateIngredient(_ context.Context, name string) (int64, error) {
	m.nextID++
	m.ingredients[m.nextID] = &Ingredient{ID: m.nextID, Name: name}
	return m.nextID, nil
}

func (m *mockPrescriptionRepo) GetIngredient(_ context.Context, id int64) (*Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return nil, ErrIngredientNotFound
	}
	cp := *ing
	return &cp, nil
}

func (m *mockPrescriptionRepo) FindIngredientByName(_ context.Context, name string) (*Ingredient, error) {
	for _, ing := range m.ingredients {
		if strings.EqualFold(ing.Name, name) {
			cp := *ing
			return &cp, nil
		}
	}
	return nil, ErrIngredientNotFound
}

func (m *mockPrescriptionRepo) ListIngredients(_ context.Context) ([]Ingredient, error) {
	out := make([]Ingredient, 0, len(m.ingredients))
	for _, ing := range m.ingredients {
		out = append(out, *ing)
	}
	return out, nil
}

func (m *mockPrescriptionRepo) DeleteIngredient(_ context.Context, id int64) error {
	for _, p := range m.prescriptions {
		if p.IngredientID == id {
			return ErrIngredientInUse
		}
	}
	delete(m.ingredients, id)
	return nil
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.prescriptions[p.ID] = &cp
	return p.ID, nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, userID, id int64) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrescriptionRepo) ListByUser(_ context.Context, userID int64, unseenOnly bool) ([]Prescription, error) {
	var out []Prescription
	for _, p := range m.prescriptions {
		if p.UserID != userID {
			continue
		}
		if unseenOnly && p.Seen {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPrescriptionRepo) MarkSeen(_ context.Context, id int64) error {
	m.prescriptions[id].Seen = true
	return nil
}

func (m *mockPrescriptionRepo) MarkAllSeen(_ context.Context, userID int64) error {
	for _, p := range m.prescriptions {
		if p.UserID == userID {
			p.Seen = true
		}
	}
	return nil
}

func (m *mockPrescriptionRepo) Delete(_ context.Context, _, id int64) error {
	delete(m.prescriptions, id)
	return nil
}

func (m *mockPrescriptionRepo) CountUnseen(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, p := range m.prescriptions {
		if p.UserID == userID && !p.Seen {
			n++
		}
	}
	return n, nil
}

// --- Helpers ---

func newFixture(t *testing.T) (*Service, *mockPrescriptionRepo, *mockUserRepo, int64) {
	t.Helper()

	users := newUserRepo()
	users.users[1] = &user.User{ID: 1, Name: "Anna"}
	users.users[2] = &user.User{ID: 2, Name: "Doc"}
	users.caregivers[2] = true
	users.patients[[2]int64{2, 1}] = true

	repo := newPrescriptionRepo()
	svc := NewService(repo, users)

	ingID, err := svc.AddIngredient(context.Background(), "Metformin")
	require.NoError(t, err)
	return svc, repo, users, ingID
}

func addRequest(ingID int64) AddRequest {
	return AddRequest{
		UserID:       1,
		Name:         "Glucophage",
		IngredientID: ingID,
		Kind:         KindPill,
		Dose:         500,
		Units:        "mg",
		Quantity:     2,
	}
}

// --- Tests ---

func TestAddIngredient_Duplicate(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	_, err := svc.AddIngredient(context.Background(), "Metformin")
	require.ErrorIs(t, err, ErrIngredientExists)
}

func TestDeleteIngredient_NotFound(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	err := svc.DeleteIngredient(context.Background(), 999)
	require.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestDeleteIngredient_InUse(t *testing.T) {
	svc, _, _, ingID := newFixture(t)

	_, err := svc.Add(context.Background(), addRequest(ingID))
	require.NoError(t, err)

	err = svc.DeleteIngredient(context.Background(), ingID)
	require.ErrorIs(t, err, ErrIngredientInUse)
}

func TestAdd_UnknownKind(t *testing.T) {
	svc, _, _, ingID := newFixture(t)

	req := addRequest(ingID)
	req.Kind = "SYRUP"
	_, err := svc.Add(context.Background(), req)
	var kindErr *UnknownKindError
	require.ErrorAs(t, err, &kindErr)
}

func TestAdd_InvalidDose(t *testing.T) {
	svc, _, _, ingID := newFixture(t)

	req := addRequest(ingID)
	req.Dose = 0
	_, err := svc.Add(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidDose)

	req = addRequest(ingID)
	req.Quantity = -1
	_, err = svc.Add(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidDose)
}

func TestAdd_IngredientNotFound(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	_, err := svc.Add(context.Background(), addRequest(999))
	require.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestAdd_SelfRecordedIsSeen(t *testing.T) {
	svc, repo, _, ingID := newFixture(t)

	id, err := svc.Add(context.Background(), addRequest(ingID))
	require.NoError(t, err)

	stored := repo.prescriptions[id]
	assert.True(t, stored.Seen)
	assert.Equal(t, "Metformin", stored.IngredientName)
}

func TestAdd_CaregiverPrescribedIsUnseen(t *testing.T) {
	svc, repo, _, ingID := newFixture(t)

	req := addRequest(ingID)
	doc := int64(2)
	req.CaregiverID = &doc

	id, err := svc.Add(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, repo.prescriptions[id].Seen)
}

func TestAdd_PrescriberWithoutProfile(t *testing.T) {
	svc, _, users, ingID := newFixture(t)
	users.users[3] = &user.User{ID: 3}

	req := addRequest(ingID)
	notDoc := int64(3)
	req.CaregiverID = &notDoc

	_, err := svc.Add(context.Background(), req)
	require.ErrorIs(t, err, user.ErrNotCaregiver)
}

func TestAdd_NotAPatient(t *testing.T) {
	svc, _, users, ingID := newFixture(t)
	users.users[4] = &user.User{ID: 4}
	users.caregivers[4] = true

	req := addRequest(ingID)
	stranger := int64(4)
	req.CaregiverID = &stranger

	_, err := svc.Add(context.Background(), req)
	require.ErrorIs(t, err, ErrNotPatient)
}

func TestList_MarksSeenAndResolvesPrescriber(t *testing.T) {
	svc, repo, users, ingID := newFixture(t)

	req := addRequest(ingID)
	doc := int64(2)
	req.CaregiverID = &doc
	id, err := svc.Add(context.Background(), req)
	require.NoError(t, err)

	users.users[1].PCPhysicianID = &doc

	details, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].Prescriber)
	assert.Equal(t, "Doc", details[0].Prescriber.Name)
	require.NotNil(t, details[0].Job)
	assert.Equal(t, JobPCPhysician, *details[0].Job)
	assert.True(t, repo.prescriptions[id].Seen)
}

func TestUnseen_NoSideEffect(t *testing.T) {
	svc, repo, _, ingID := newFixture(t)

	req := addRequest(ingID)
	doc := int64(2)
	req.CaregiverID = &doc
	id, err := svc.Add(context.Background(), req)
	require.NoError(t, err)

	details, err := svc.Unseen(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].Job)
	assert.Equal(t, JobCaregiver, *details[0].Job)
	assert.False(t, repo.prescriptions[id].Seen)
}

func TestGet_MarksSeen(t *testing.T) {
	svc, repo, _, ingID := newFixture(t)

	req := addRequest(ingID)
	doc := int64(2)
	req.CaregiverID = &doc
	id, err := svc.Add(context.Background(), req)
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), 1, id)
	require.NoError(t, err)
	assert.True(t, detail.Seen)
	assert.True(t, repo.prescriptions[id].Seen)
}

func TestGet_WrongOwner(t *testing.T) {
	svc, _, _, ingID := newFixture(t)

	id, err := svc.Add(context.Background(), addRequest(ingID))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCountUnseen(t *testing.T) {
	svc, _, _, ingID := newFixture(t)

	req := addRequest(ingID)
	doc := int64(2)
	req.CaregiverID = &doc
	_, err := svc.Add(context.Background(), req)
	require.NoError(t, err)

	n, err := svc.CountUnseen(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
