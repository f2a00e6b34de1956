package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/internal/model"
	"mailsync-go/internal/search"
	"mailsync-go/internal/service"
	"mailsync-go/internal/sharding"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSearchService struct {
	gotNS     string
	gotQuery  string
	gotOffset int
	gotLimit  int
	entity    search.EntityType
	err       error
}

func (f *fakeSearchService) record(entity search.EntityType, ns string, raw []byte, offset, limit int) ([]search.Hit, error) {
	f.entity, f.gotNS, f.gotQuery, f.gotOffset, f.gotLimit = entity, ns, string(raw), offset, limit
	if f.err != nil {
		return nil, f.err
	}
	return []search.Hit{{Relevance: 1.5, Object: json.RawMessage(`{"id":"x"}`)}}, nil
}

func (f *fakeSearchService) SearchMessages(_ context.Context, ns string, raw []byte, offset, limit int) ([]search.Hit, error) {
	return f.record(search.EntityMessage, ns, raw, offset, limit)
}

func (f *fakeSearchService) SearchThreads(_ context.Context, ns string, raw []byte, offset, limit int) ([]search.Hit, error) {
	return f.record(search.EntityThread, ns, raw, offset, limit)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSearchHandler(t *testing.T) {
	svc := &fakeSearchService{}
	h := NewSearchHandler(svc)
	r := newTestRouter()
	r.POST("/n/:ns/messages/search", h.SearchMessages)
	r.POST("/n/:ns/threads/search", h.SearchThreads)

	rr := doJSON(r, http.MethodPost, "/n/ns1/threads/search", `{"query": [{"subject": "hi"}], "offset": 10, "limit": 5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"relevance": 1.5, "object": {"id": "x"}}]`, rr.Body.String())
	assert.Equal(t, search.EntityThread, svc.entity)
	assert.Equal(t, "ns1", svc.gotNS)
	assert.JSONEq(t, `[{"subject": "hi"}]`, svc.gotQuery)
	assert.Equal(t, 10, svc.gotOffset)
	assert.Equal(t, 5, svc.gotLimit)

	rr = doJSON(r, http.MethodPost, "/n/ns1/messages/search", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, search.EntityMessage, svc.entity)
	assert.Empty(t, svc.gotQuery)

	rr = doJSON(r, http.MethodPost, "/n/ns1/messages/search", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: bad", search.ErrInvalidQuery), http.StatusBadRequest},
		{fmt.Errorf("%w: bad", service.ErrInputError), http.StatusBadRequest},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", sharding.ErrConfiguration), http.StatusInternalServerError},
		{fmt.Errorf("elasticsearch returned an error: 500"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := newTestRouter()
			r.POST("/n/:ns/messages/search", NewSearchHandler(&fakeSearchService{err: tt.err}).SearchMessages)
			rr := doJSON(r, http.MethodPost, "/n/ns1/messages/search", `{}`)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

type fakeMessageService struct {
	req map[string]interface{}
	err error
}

func (f *fakeMessageService) UpdateMessage(_ context.Context, ns, id string, req map[string]interface{}) (*model.MessageResponseDTO, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.MessageResponseDTO{ID: id, NamespaceID: ns, Object: "message", Unread: false}, nil
}

func TestMessageHandler_UpdateMessage(t *testing.T) {
	svc := &fakeMessageService{}
	r := newTestRouter()
	r.PUT("/n/:ns/messages/:id", NewMessageHandler(svc).UpdateMessage)

	rr := doJSON(r, http.MethodPut, "/n/ns1/messages/m1", `{"unread": false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"unread": false}, svc.req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "m1", body["id"])

	rr = doJSON(r, http.MethodPut, "/n/ns1/messages/m1", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	svc.err = fmt.Errorf("%w: \"unread\" must be true or false", service.ErrInputError)
	rr = doJSON(r, http.MethodPut, "/n/ns1/messages/m1", `{"unread": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"unread\" must be true or false`)
}

type fakeAccountService struct {
	err error
}

func (f *fakeAccountService) CreateAccount(_ context.Context, email, provider string) (*model.Account, string, string, error) {
	if f.err != nil {
		return nil, "", "", f.err
	}
	return &model.Account{ID: 1<<48 + 1, Email: email, Provider: provider}, "s3cret", "tok", nil
}

func (f *fakeAccountService) IssueToken(_ context.Context, _, secret string) (string, error) {
	if secret != "s3cret" {
		return "", service.ErrUnauthorized
	}
	return "tok", nil
}

func (f *fakeAccountService) GetAccount(context.Context, string) (*model.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestAccountHandler(t *testing.T) {
	svc := &fakeAccountService{}
	h := NewAccountHandler(svc)
	r := newTestRouter()
	r.POST("/accounts", h.CreateAccount)
	r.POST("/accounts/token", h.IssueToken)

	rr := doJSON(r, http.MethodPost, "/accounts", `{"email_address": "a@example.com", "provider": "gmail"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"namespace_id":"`+model.EncodePublicID(1<<48+1)+`"`)
	assert.Contains(t, rr.Body.String(), `"secret":"s3cret"`)

	rr = doJSON(r, http.MethodPost, "/accounts", `{"email_address": "a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	svc.err = service.ErrAccountExists
	rr = doJSON(r, http.MethodPost, "/accounts", `{"email_address": "a@example.com", "provider": "gmail"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(r, http.MethodPost, "/accounts/token", `{"email_address": "a@example.com", "secret": "s3cret"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(r, http.MethodPost, "/accounts/token", `{"email_address": "a@example.com", "secret": "nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestShardHandler_ListShards(t *testing.T) {
	reg, err := sharding.NewStaticRegistry([]config.DatabaseHostConfig{{
		Host: "db",
		Shards: []config.ShardConfig{
			{ID: 0, Open: true}, {ID: 1}, {ID: 2, Open: true, Disabled: true},
			{ID: 3}, {ID: 4}, {ID: 5},
		},
	}})
	require.NoError(t, err)
	r := newTestRouter()
	r.GET("/admin/shards", NewShardHandler(reg).ListShards)

	rr := doJSON(r, http.MethodGet, "/admin/shards?total_workers=2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Shards      []int            `json:"shards"`
			OpenShards  []int            `json:"open_shards"`
			Assignments map[string][]int `json:"assignments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, body.Data.Shards)
	assert.Equal(t, []int{0}, body.Data.OpenShards)
	assert.Equal(t, map[string][]int{"0": {0, 2, 4}, "1": {1, 3, 5}}, body.Data.Assignments)

	for _, q := range []string{"0", "-1", "x", "5000"} {
		rr = doJSON(r, http.MethodGet, "/admin/shards?total_workers="+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}
