//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMeasurementLifecycle(t *testing.T) {
	userID := registerUser(t, uniqueEmail("vitals"), "")

	resp := doPost(t, fmt.Sprintf("/users/%d/measurements", userID), map[string]any{
		"kind":      "BP",
		"systolic":  120,
		"diastolic": 80,
		"note":      "morning reading",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	id := decodeJSON[idResponse](t, resp).ID
	resp.Body.Close()

	resp = doGet(t, fmt.Sprintf("/users/%d/measurements/%d", userID, id))
	m := decodeJSON[measurementResponse](t, resp)
	resp.Body.Close()
	if m.Kind != "BP" || m.Systolic == nil || *m.Systolic != 120 {
		t.Fatalf("unexpected measurement: %+v", m)
	}

	resp = doPut(t, fmt.Sprintf("/users/%d/measurements/%d", userID, id), map[string]any{
		"kind":     "BP",
		"systolic": 130,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, fmt.Sprintf("/users/%d/measurements?kind=BP", userID))
	list := decodeJSON[[]measurementResponse](t, resp)
	resp.Body.Close()
	if len(list) != 1 {
		t.Fatalf("expected 1 BP measurement, got %d", len(list))
	}
	if *list[0].Systolic != 130 || *list[0].Diastolic != 80 {
		t.Fatalf("partial update lost values: %+v", list[0])
	}

	resp = doDelete(t, fmt.Sprintf("/users/%d/measurements/%d", userID, id))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestMeasurement_DecimalKinds(t *testing.T) {
	userID := registerUser(t, uniqueEmail("spo2"), "")

	resp := doPost(t, fmt.Sprintf("/users/%d/measurements", userID), map[string]any{
		"kind": "SpO2",
		"spo2": 97.5,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestMeasurement_UnknownKind(t *testing.T) {
	userID := registerUser(t, uniqueEmail("badkind"), "")

	resp := doPost(t, fmt.Sprintf("/users/%d/measurements", userID), map[string]any{
		"kind": "XX",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}
}

func TestMeasurement_OutOfRange(t *testing.T) {
	userID := registerUser(t, uniqueEmail("range"), "")

	resp := doPost(t, fmt.Sprintf("/users/%d/measurements", userID), map[string]any{
		"kind": "HR",
		"bpm":  500,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("expected an error message naming the range")
	}
}

func TestMeasurement_WrongOwnerIs404(t *testing.T) {
	owner := registerUser(t, uniqueEmail("owner"), "")
	other := registerUser(t, uniqueEmail("other"), "")

	resp := doPost(t, fmt.Sprintf("/users/%d/measurements", owner), map[string]any{
		"kind": "HR",
		"bpm":  70,
	})
	id := decodeJSON[idResponse](t, resp).ID
	resp.Body.Close()

	resp = doGet(t, fmt.Sprintf("/users/%d/measurements/%d", other, id))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
