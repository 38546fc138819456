// ABOUTME: Demo data generator for the warehouse collections.
// ABOUTME: Uses OpenAI to write suppliers, customers and products, or falls back to static data.

package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Generator creates demo records using OpenAI or falls back to static data.
type Generator struct {
	client *openai.Client
	useAI  bool
	model  string
	logger *zap.Logger
}

// Option configures a Generator.
type Option func(*openai.ClientConfig)

// WithBaseURL points the OpenAI client at another endpoint, e.g. a proxy.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) { c.BaseURL = url }
}

// NewGenerator creates a generator. An empty apiKey selects static data.
func NewGenerator(apiKey, model string, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{model: model, logger: logger}
	if g.model == "" {
		g.model = "gpt-4o-mini"
	}

	if apiKey == "" {
		logger.Info("no OpenAI API key, using static demo data")
		return g
	}
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	g.client = openai.NewClientWithConfig(cfg)
	g.useAI = true
	logger.Info("generating demo data with OpenAI", zap.String("model", g.model))
	return g
}

// Data holds one batch of demo records.
type Data struct {
	Suppliers []Supplier `json:"suppliers"`
	Customers []Customer `json:"customers"`
	Products  []Product  `json:"products"`
}

// Supplier is a generated supplier record.
type Supplier struct {
	Name        string `json:"supplier_name"`
	ContactInfo string `json:"contact_info"`
	Address     string `json:"address"`
}

// Customer is a generated customer record.
type Customer struct {
	Name        string `json:"customer_name"`
	ContactInfo string `json:"contact_info"`
}

// Product is a generated product record.
type Product struct {
	Name         string  `json:"product_name"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unit_price"`
	ReorderLevel int     `json:"reorder_level"`
}

// Generate creates count records of each collection. Any AI failure falls
// back to the static set for the whole batch.
func (g *Generator) Generate(ctx context.Context, count int) (*Data, error) {
	if count <= 0 {
		return nil, cerrors.Newf("count must be positive, got %d", count)
	}
	if !g.useAI {
		return generateStatic(count), nil
	}

	data := &Data{}

	type result struct {
		name string
		err  error
	}

	resultCh := make(chan result, 3)
	g.logger.Info("generating demo data", zap.Int("count", count))

	go func() {
		suppliers, err := g.generateSuppliers(ctx, count)
		data.Suppliers = suppliers
		resultCh <- result{"suppliers", err}
	}()

	go func() {
		customers, err := g.generateCustomers(ctx, count)
		data.Customers = customers
		resultCh <- result{"customers", err}
	}()

	go func() {
		products, err := g.generateProducts(ctx, count)
		data.Products = products
		resultCh <- result{"products", err}
	}()

	var failed []string
	for i := 0; i < 3; i++ {
		r := <-resultCh
		if r.err != nil {
			g.logger.Warn("generation failed", zap.String("collection", r.name), zap.Error(r.err))
			failed = append(failed, r.name)
			continue
		}
		g.logger.Debug("generated", zap.String("collection", r.name))
	}

	if len(failed) > 0 {
		g.logger.Warn("AI generation incomplete, using static demo data",
			zap.String("failed", strings.Join(failed, ",")))
		return generateStatic(count), nil
	}
	return data, nil
}

func (g *Generator) generateSuppliers(ctx context.Context, count int) ([]Supplier, error) {
	prompt := fmt.Sprintf(`Generate %d realistic suppliers for a hardware and building-materials warehouse.
Return a JSON array of objects with: supplier_name, contact_info (an email address or phone number), address (street, city).
Use varied company names and cities.`, count)
	return callOpenAI[[]Supplier](ctx, g.client, g.model, prompt)
}

func (g *Generator) generateCustomers(ctx context.Context, count int) ([]Customer, error) {
	prompt := fmt.Sprintf(`Generate %d realistic customers of a hardware warehouse: contractors, retailers and a few individuals.
Return a JSON array of objects with: customer_name, contact_info (an email address or phone number).`, count)
	return callOpenAI[[]Customer](ctx, g.client, g.model, prompt)
}

func (g *Generator) generateProducts(ctx context.Context, count int) ([]Product, error) {
	prompt := fmt.Sprintf(`Generate %d realistic products stocked by a hardware warehouse.
Return a JSON array of objects with: product_name, category (Tools, Fasteners, Electrical, Plumbing, Paint or Lumber),
unit (pcs, box, kg, m or l), unit_price (number, two decimals), reorder_level (integer between 5 and 200).`, count)
	return callOpenAI[[]Product](ctx, g.client, g.model, prompt)
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, cerrors.Wrap(err, "OpenAI API error")
	}
	if len(resp.Choices) == 0 {
		return result, cerrors.New("no response from OpenAI")
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, cerrors.Wrap(err, "parsing JSON response")
	}
	return result, nil
}

// stripFences removes a ```json fence some models add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
