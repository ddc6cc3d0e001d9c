package chi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/assistant"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/catalog"
)

var validate = validator.New()

// validateStruct returns a single readable message for every failed field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Namespace(), fe.ActualTag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

type chatRequest struct {
	Message    string        `json:"message" validate:"required_without=Items,max=4096"`
	Backend    string        `json:"backend" validate:"omitempty,oneof=direct mcp hybrid"`
	CustomerID string        `json:"customer_id" validate:"required_with=Items"`
	Limit      int           `json:"limit"`
	Items      []itemRequest `json:"items" validate:"omitempty,max=20,dive"`
}

type itemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
	Size      string `json:"size"`
}

func (r chatRequest) toDomain() (assistant.Request, error) {
	items := make([]domorder.Item, 0, len(r.Items))
	for _, it := range r.Items {
		item, err := domorder.NewItem(it.ProductID, it.Quantity, it.Size)
		if err != nil {
			return assistant.Request{}, err
		}
		items = append(items, item)
	}
	return assistant.Request{
		Message:    r.Message,
		Backend:    assistant.Backend(r.Backend),
		CustomerID: r.CustomerID,
		Limit:      r.Limit,
		Items:      items,
	}, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type productResponse struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Price          decimal.Decimal `json:"price"`
	Description    string          `json:"description"`
	ImageURL       string          `json:"image_url"`
	Category       string          `json:"category"`
	AvailableSizes []string        `json:"available_sizes,omitempty"`
	Inventory      any             `json:"inventory"`
	Similarity     *float64        `json:"similarity,omitempty"`
	TextRank       *float64        `json:"text_rank,omitempty"`
	Score          *float64        `json:"score,omitempty"`
}

func productToResponse(p product.Product) productResponse {
	inv := p.Inventory()
	var stock any = inv.Total()
	if inv.Sized() {
		stock = inv.BySize()
	}
	return productResponse{
		ProductID:      p.ID(),
		Name:           p.Name(),
		Brand:          p.Brand(),
		Price:          p.Price(),
		Description:    p.Description(),
		ImageURL:       p.ImageURL(),
		Category:       string(p.Category()),
		AvailableSizes: p.Sizes(),
		Inventory:      stock,
	}
}

func scoredToResponse(items []product.Scored) []productResponse {
	out := make([]productResponse, 0, len(items))
	for _, s := range items {
		r := productToResponse(s.Product)
		r.Similarity = s.Semantic
		r.TextRank = s.Lexical
		r.Score = s.Combined
		out = append(out, r)
	}
	return out
}

type activityResponse struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"activity_type"`
	Title         string    `json:"title"`
	Details       string    `json:"details,omitempty"`
	SQLQuery      string    `json:"sql_query,omitempty"`
	ExecutionTime *int64    `json:"execution_time_ms,omitempty"`
	Agent         string    `json:"agent_name,omitempty"`
}

func activityToResponse(e activity.Entry) activityResponse {
	r := activityResponse{
		ID:        e.ID(),
		Timestamp: e.Timestamp(),
		Type:      string(e.Kind()),
		Title:     e.Title(),
		Details:   e.Detail(),
		SQLQuery:  e.DisplaySQL(),
		Agent:     e.Actor(),
	}
	if d, ok := e.Duration(); ok {
		ms := d.Milliseconds()
		r.ExecutionTime = &ms
	}
	return r
}

func activitiesToResponse(entries []activity.Entry) []activityResponse {
	out := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityToResponse(e))
	}
	return out
}

type orderLineResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type orderResponse struct {
	OrderID           string              `json:"order_id"`
	CustomerID        string              `json:"customer_id"`
	Status            string              `json:"status"`
	Items             []orderLineResponse `json:"items"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Tax               decimal.Decimal     `json:"tax"`
	Shipping          decimal.Decimal     `json:"shipping"`
	Total             decimal.Decimal     `json:"total"`
	PlacedAt          time.Time           `json:"placed_at"`
	EstimatedDelivery string              `json:"estimated_delivery"`
}

func orderToResponse(c domorder.Confirmation) *orderResponse {
	lines := make([]orderLineResponse, 0, len(c.Quote.Lines))
	for _, l := range c.Quote.Lines {
		lines = append(lines, orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.Total(),
		})
	}
	return &orderResponse{
		OrderID:           c.OrderID,
		CustomerID:        c.CustomerID,
		Status:            c.Status,
		Items:             lines,
		Subtotal:          c.Quote.Subtotal,
		Tax:               c.Quote.Tax,
		Shipping:          c.Quote.Shipping,
		Total:             c.Quote.Total,
		PlacedAt:          c.PlacedAt,
		EstimatedDelivery: c.EstimatedDelivery.Format(time.DateOnly),
	}
}

type chatResponse struct {
	Text        string             `json:"text"`
	SearchType  string             `json:"search_type,omitempty"`
	Products    []productResponse  `json:"products,omitempty"`
	Order       *orderResponse     `json:"order,omitempty"`
	Suggestions []string           `json:"suggestions,omitempty"`
	Degraded    bool               `json:"degraded"`
	Activities  []activityResponse `json:"activities"`
}

func chatToResponse(r assistant.Response) chatResponse {
	resp := chatResponse{
		Text:        r.Text,
		SearchType:  string(r.Mode),
		Suggestions: r.Suggestions,
		Degraded:    r.Degraded,
		Activities:  activitiesToResponse(r.Activities),
	}
	if len(r.Products) > 0 {
		resp.Products = scoredToResponse(r.Products)
	}
	if r.Order != nil {
		resp.Order = orderToResponse(*r.Order)
	}
	return resp
}

type inventoryResponse struct {
	ProductID      string   `json:"product_id"`
	Size           string   `json:"size,omitempty"`
	Quantity       int      `json:"quantity"`
	InStock        bool     `json:"in_stock"`
	AvailableSizes []string `json:"available_sizes,omitempty"`
}

func availabilityToResponse(a catalog.Availability) inventoryResponse {
	return inventoryResponse{
		ProductID:      a.ProductID,
		Size:           a.Size,
		Quantity:       a.Quantity,
		InStock:        a.InStock,
		AvailableSizes: a.Sizes,
	}
}

type searchResponse struct {
	SearchType string             `json:"search_type"`
	Products   []productResponse  `json:"products"`
	Degraded   bool               `json:"degraded"`
	Activities []activityResponse `json:"activities"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
