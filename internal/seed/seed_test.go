// ABOUTME: Tests for demo data generation and pushing.
// ABOUTME: Uses a fake OpenAI endpoint and a recording writer.

package seed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
)

func TestGenerate_StaticWithoutKey(t *testing.T) {
	g := NewGenerator("", "", nil)

	data, err := g.Generate(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, data.Suppliers, 20)
	assert.Len(t, data.Customers, 20)
	assert.Len(t, data.Products, 20)

	seen := map[string]bool{}
	for _, p := range data.Products {
		assert.False(t, seen[p.Name], "duplicate product %q", p.Name)
		seen[p.Name] = true
	}
	assert.Equal(t, staticProducts[0].Name+" 2", data.Products[len(staticProducts)].Name)
}

func TestGenerate_RejectsNonPositiveCount(t *testing.T) {
	_, err := NewGenerator("", "", nil).Generate(context.Background(), 0)
	assert.Error(t, err)
}

// fakeOpenAI answers chat completions with canned JSON per collection.
func fakeOpenAI(t *testing.T, replies map[string]string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		content := "[]"
		for key, reply := range replies {
			if strings.Contains(prompt, "realistic "+key) {
				content = reply
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_UsesOpenAI(t *testing.T) {
	srv := fakeOpenAI(t, map[string]string{
		"suppliers": `[{"supplier_name":"AI Supply","contact_info":"ai@example.com","address":"1 Main St"}]`,
		"customers": "```json\n[{\"customer_name\":\"AI Customer\",\"contact_info\":\"555-0100\"}]\n```",
		"products":  `[{"product_name":"AI Saw","category":"Tools","unit":"pcs","unit_price":19.99,"reorder_level":12}]`,
	}, http.StatusOK)

	g := NewGenerator("sk-test", "test-model", nil, WithBaseURL(srv.URL+"/v1"))
	data, err := g.Generate(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []Supplier{{Name: "AI Supply", ContactInfo: "ai@example.com", Address: "1 Main St"}}, data.Suppliers)
	assert.Equal(t, []Customer{{Name: "AI Customer", ContactInfo: "555-0100"}}, data.Customers)
	assert.Equal(t, []Product{{Name: "AI Saw", Category: "Tools", Unit: "pcs", UnitPrice: 19.99, ReorderLevel: 12}}, data.Products)
}

func TestGenerate_FallsBackOnAIFailure(t *testing.T) {
	srv := fakeOpenAI(t, nil, http.StatusInternalServerError)

	g := NewGenerator("sk-test", "", nil, WithBaseURL(srv.URL+"/v1"))
	data, err := g.Generate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, generateStatic(3), data)
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		`[1]`:                  `[1]`,
		"```json\n[1]\n```":    `[1]`,
		"```\n[1]\n```":        `[1]`,
		"  \n```json [1]```  ": `[1]`,
	}
	for in, want := range tests {
		assert.Equal(t, want, stripFences(in), "input %q", in)
	}
}

type created struct {
	Res     string
	Token   string
	Payload string
}

type fakeWriter struct {
	mu      sync.Mutex
	created []created
	fail    map[string]error
}

func (f *fakeWriter) Create(ctx context.Context, res, token string, payload resource.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[res]; err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.created = append(f.created, created{Res: res, Token: token, Payload: string(body)})
	return nil
}

func TestPush(t *testing.T) {
	data := &Data{
		Suppliers: []Supplier{{Name: "Acme", ContactInfo: "a@example.com", Address: "1 Road"}},
		Customers: []Customer{{Name: "Kim", ContactInfo: "555"}},
		Products:  []Product{{Name: "Saw", Category: "Tools", Unit: "pcs", UnitPrice: 9.5, ReorderLevel: 4}},
	}

	t.Run("creates every record in order", func(t *testing.T) {
		w := &fakeWriter{}
		sum, err := Push(context.Background(), w, "tok", data, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"suppliers": 1, "customers": 1, "products": 1}, sum.Created)
		assert.Zero(t, sum.Failed)

		require.Len(t, w.created, 3)
		assert.Equal(t, "suppliers", w.created[0].Res)
		assert.Equal(t, "customers", w.created[1].Res)
		assert.Equal(t, "products", w.created[2].Res)
		assert.Equal(t, "tok", w.created[2].Token)
		assert.JSONEq(t, `{"supplier_name":"Acme","contact_info":"a@example.com","address":"1 Road"}`, w.created[0].Payload)
		assert.JSONEq(t, `{"product_name":"Saw","category":"Tools","unit":"pcs","unit_price":9.5,"reorder_level":4}`, w.created[2].Payload)
	})

	t.Run("rejected records are counted", func(t *testing.T) {
		w := &fakeWriter{fail: map[string]error{"customers": apperrors.Validation("duplicate customer")}}
		sum, err := Push(context.Background(), w, "tok", data, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Failed)
		assert.Equal(t, map[string]int{"suppliers": 1, "products": 1}, sum.Created)
	})

	t.Run("auth failure stops the push", func(t *testing.T) {
		w := &fakeWriter{fail: map[string]error{"suppliers": apperrors.Auth("token expired")}}
		_, err := Push(context.Background(), w, "tok", data, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsAuth(err))
		assert.Empty(t, w.created)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w := &fakeWriter{}
		_, err := Push(ctx, w, "tok", data, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, w.created)
	})
}
