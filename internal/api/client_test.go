package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_giapha/internal/giapha"
)

const testGUID = "3e2f1a9b-5c6d-4e7f-8a9b-0c1d2e3f4a5b"

func TestFindFamilyByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/family/by-code/GPVN-72":
			json.NewEncoder(w).Encode(map[string]string{"id": testGUID})
		case "/family/by-code/GPVN-404":
			w.WriteHeader(http.StatusNotFound)
		case "/family/by-code/GPVN-400":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"family not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "secret")

	id, found, err := c.FindFamilyByCode(context.Background(), "GPVN-72")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, testGUID, id)

	_, found, err = c.FindFamilyByCode(context.Background(), "GPVN-404")
	require.NoError(t, err)
	assert.False(t, found)

	// 400 with a "not found" message is the backend's other absent shape.
	_, found, err = c.FindFamilyByCode(context.Background(), "GPVN-400")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateFamilyBareGUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/family", r.URL.Path)
		var p FamilyPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "GPVN-72", p.Code)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`"` + testGUID + `"`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	id, err := c.CreateFamily(context.Background(), FamilyPayload{Name: "Gia đình 72", Code: "GPVN-72", Visibility: "Private"})
	require.NoError(t, err)
	assert.Equal(t, testGUID, id)
}

func TestCreateMemberEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p MemberPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "GPVN-72-15", p.Code)
		json.NewEncoder(w).Encode(createResult{Succeeded: true, Value: testGUID})
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	id, err := c.CreateMember(context.Background(), MemberPayload{FamilyID: "fam", Code: "GPVN-72-15", LastName: "Nguyễn", FirstName: "Văn A"})
	require.NoError(t, err)
	assert.Equal(t, testGUID, id)
}

func TestCreateMemberRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"succeeded": false, "errors": []string{"code taken"}})
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	_, err := c.CreateMember(context.Background(), MemberPayload{Code: "GPVN-72-15"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPVN-72-15")
}

func TestUpdateMemberRelationships(t *testing.T) {
	var got RelationshipPatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/member/"+testGUID, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	fatherID := "f-id"
	err := c.UpdateMemberRelationships(context.Background(), testGUID, RelationshipPatch{FatherID: &fatherID})
	require.NoError(t, err)
	require.NotNil(t, got.FatherID)
	assert.Equal(t, "f-id", *got.FatherID)
	assert.Nil(t, got.MotherID)
}

func TestUpdateMemberRelationshipsEmptyPatchSkipsWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty patch must not hit the backend")
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	require.NoError(t, c.UpdateMemberRelationships(context.Background(), testGUID, RelationshipPatch{}))
}

func TestNewMemberPayloadOmitsEmptyOptionals(t *testing.T) {
	rec := &giapha.MemberRecord{
		Code:      "GPVN-72-15",
		LastName:  "Nguyễn",
		FirstName: "Văn A",
		Gender:    giapha.GenderMale,
		IsRoot:    true,
	}
	body, err := json.Marshal(NewMemberPayload(rec, "fam"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.NotContains(t, doc, "nickname")
	assert.NotContains(t, doc, "dateOfBirth")
	assert.NotContains(t, doc, "fatherId")
	assert.Equal(t, true, doc["isRoot"])
	assert.Equal(t, "Male", doc["gender"])
}

func TestIsGUID(t *testing.T) {
	assert.True(t, isGUID(testGUID))
	assert.False(t, isGUID("not-a-guid"))
	assert.False(t, isGUID(testGUID+"x"))
}
