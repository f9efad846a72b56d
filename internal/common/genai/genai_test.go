package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/common/config"
	"petition-workers/internal/common/database"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/models"
)

func testContext() models.GenerationContext {
	return models.GenerationContext{
		ApplicantName:    "Ana Souza",
		VisaType:         "F-1",
		DocumentType:     "cover_letter",
		RequiredVoice:    "first",
		Facts:            map[string]string{"school": "State University", "program": "MBA"},
		FinancialSummary: "Tuition: USD $10,000\nLiving Expenses: USD $7,000",
		Exhibits:         []models.Exhibit{{Letter: "A", Description: "Passport"}},
		Directives:       []string{"DO NOT MENTION PROGRAM DATES"},
		Sections:         []models.SectionName{models.SectionIntroduction, models.SectionLegalBasis, models.SectionConclusion},
		WordLimits:       map[string]int{"introduction": 120},
	}
}

const validOutput = `{"sections": {"introduction": "I am writing to request a change of status.", "conclusion": "Thank you for your consideration."}}`

type stubCompleter struct {
	text  string
	err   error
	calls int32
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string, _ []byte) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.text, s.err
}

func TestBuildPrompt(t *testing.T) {
	system, user := BuildPrompt(testContext())

	assert.Contains(t, system, "(Exhibit X)")
	assert.Contains(t, user, "Write in the first person.")
	assert.Contains(t, user, "- program: MBA\n- school: State University")
	assert.Contains(t, user, "Tuition: USD $10,000\nLiving Expenses: USD $7,000")
	assert.Contains(t, user, "- Exhibit A: Passport")
	assert.Contains(t, user, "- DO NOT MENTION PROGRAM DATES")
	assert.Contains(t, user, "- introduction (at most 120 words)")
	assert.Contains(t, user, "- legal_basis\n")
}

func TestParseSections(t *testing.T) {
	requested := testContext().Sections

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain json", raw: validOutput},
		{name: "fenced json", raw: "```json\n" + validOutput + "\n```"},
		{name: "no json", raw: "I cannot help with that.", wantErr: true},
		{name: "missing required", raw: `{"sections": {"introduction": "Hi."}}`, wantErr: true},
		{name: "unrequested section", raw: `{"sections": {"introduction": "a", "conclusion": "b", "ties_to_home": "c"}}`, wantErr: true},
		{name: "blank required", raw: `{"sections": {"introduction": "  ", "conclusion": "b"}}`, wantErr: true},
		{name: "non-string", raw: `{"sections": {"introduction": 1, "conclusion": "b"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := ParseSections(tt.raw, requested)
			if tt.wantErr {
				require.Error(t, err)
				stdErr, ok := apperrors.AsStandardError(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.ErrCodeGenerationOutputInvalid, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Thank you for your consideration.", sections.Get(models.SectionConclusion))
			assert.Empty(t, sections.Get(models.SectionLegalBasis))
		})
	}
}

func TestHTTPClient_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.Contains(t, req.Prompt, "Applicant: Ana Souza")

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Text: validOutput})
	}))
	defer server.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "key", MaxRetries: 2, Backoff: time.Millisecond})
	gen := NewSectionGenerator(c, logger.NewTestLogger(t))

	sections, err := gen.Generate(context.Background(), testContext())

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NotEmpty(t, sections.Get(models.SectionIntroduction))
}

func TestHTTPClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: server.URL, MaxRetries: 3, Backoff: time.Millisecond})
	_, err := c.Complete(context.Background(), "s", "u", nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	stdErr, _ := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeGenerationFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "bad prompt")
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewHTTPClient(HTTPConfig{BaseURL: server.URL, MaxRetries: 1, Backoff: time.Millisecond})
	_, err := c.Complete(ctx, "s", "u", nil)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGenerationTimeout, stdErr.Code)
}

func TestOpenAIClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])
		assert.Equal(t, "json_object", req["response_format"].(map[string]interface{})["type"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "c1",
			"object":  "chat.completion",
			"choices": []interface{}{map[string]interface{}{"index": 0, "message": map[string]interface{}{"role": "assistant", "content": validOutput}}},
		})
	}))
	defer server.Close()

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk", BaseURL: server.URL + "/v1", Model: "gpt-test"})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "system", "user", nil)
	require.NoError(t, err)
	assert.Equal(t, validOutput, text)

	_, err = NewOpenAIClient(OpenAIConfig{})
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(config.GenAIConfig{Provider: "http", BaseURL: "http://genai"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, c)

	c, err = NewCompleter(config.GenAIConfig{Provider: "openai", APIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewCompleter(config.GenAIConfig{Provider: "http"})
	assert.Error(t, err)
	_, err = NewCompleter(config.GenAIConfig{Provider: "fax"})
	assert.Error(t, err)
}

func TestCacheKey_Deterministic(t *testing.T) {
	a, b := testContext(), testContext()
	assert.Equal(t, CacheKey(a), CacheKey(b))
	assert.True(t, strings.HasPrefix(CacheKey(a), cacheKeyPrefix))

	b.Directives = nil
	assert.NotEqual(t, CacheKey(a), CacheKey(b))
}

func TestCachedGenerator_HitSkipsCollaborator(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer rc.Close()

	stub := &stubCompleter{text: validOutput}
	gen := NewCachedGenerator(NewSectionGenerator(stub, logger.NewNoOpLogger()),
		NewSectionCache(rc, time.Hour), logger.NewNoOpLogger())

	first, err := gen.Generate(context.Background(), testContext())
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), testContext())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
	assert.True(t, mr.Exists(CacheKey(testContext())))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(CacheKey(testContext())).Seconds(), 1)
}

func TestCachedGenerator_FailureNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer rc.Close()

	stub := &stubCompleter{err: apperrors.NewGenerationFailedError(errors.New("503"))}
	gen := NewCachedGenerator(NewSectionGenerator(stub, logger.NewNoOpLogger()),
		NewSectionCache(rc, time.Hour), logger.NewNoOpLogger())

	_, err := gen.Generate(context.Background(), testContext())
	require.Error(t, err)
	assert.False(t, mr.Exists(CacheKey(testContext())))
}

func TestCachedGenerator_RedisDownBypassesCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := CacheKey(testContext())
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.Regexp().ExpectSet(key, `.*`, time.Hour).SetErr(errors.New("connection refused"))

	stub := &stubCompleter{text: validOutput}
	gen := NewCachedGenerator(NewSectionGenerator(stub, logger.NewNoOpLogger()),
		NewSectionCache(database.NewRedisFromClient(db), time.Hour), logger.NewNoOpLogger())

	sections, err := gen.Generate(context.Background(), testContext())

	require.NoError(t, err)
	assert.NotEmpty(t, sections.Get(models.SectionIntroduction))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionCache_LookupError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("k").SetErr(errors.New("timeout"))

	_, hit, err := NewSectionCache(database.NewRedisFromClient(db), 0).Lookup(context.Background(), "k")

	assert.False(t, hit)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeCacheUnavailable, stdErr.Code)
}
