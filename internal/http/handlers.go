package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/gymops/backoffice/internal/auth"
	catalogapp "github.com/gymops/backoffice/internal/catalog/app"
	catalogdomain "github.com/gymops/backoffice/internal/catalog/domain"
	payapp "github.com/gymops/backoffice/internal/payments/app"
	paydomain "github.com/gymops/backoffice/internal/payments/domain"
	salesapp "github.com/gymops/backoffice/internal/sales/app"
	salesdomain "github.com/gymops/backoffice/internal/sales/domain"
	"github.com/gymops/backoffice/pkg/metrics"
)

type Server struct {
	engine   *gin.Engine
	products *catalogapp.Service
	sales    *salesapp.Service
	payments *payapp.Service
}

func NewServer(products *catalogapp.Service, sales *salesapp.Service, payments *payapp.Service) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), permissionsFromHeader())
	s := &Server{engine: r, products: products, sales: sales, payments: payments}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// permissionsFromHeader attaches the caller's capability set to the
// request context. The session layer in front of this API resolves the
// logged-in user and forwards their grants in X-Permissions.
func permissionsFromHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		var names []string
		for _, p := range strings.Split(c.GetHeader("X-Permissions"), ",") {
			if p = strings.TrimSpace(p); p != "" {
				names = append(names, p)
			}
		}
		ctx := auth.WithPermissions(c.Request.Context(), auth.NewPermissions(names...))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		sales := v1.Group("/sales")
		sales.POST("", s.createSale)
		sales.GET(":id", s.getSale)
		sales.GET("", s.listSales)
		sales.POST(":id/void", s.voidSale)

		payments := v1.Group("/payments")
		payments.POST("", s.createPayment)
		payments.GET(":id", s.getPayment)
		payments.GET("", s.listPayments)
		payments.POST(":id/reverse", s.reversePayment)
	}
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// Product handlers

type productReq struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Stock  int64           `json:"stock"`
	Active *bool           `json:"active"`
}

type productResp struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Stock  int64  `json:"stock"`
	Active bool   `json:"active"`
}

func toProductResp(p catalogdomain.Product) productResp {
	return productResp{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price.StringFixed(2),
		Stock:  p.Stock,
		Active: p.Active,
	}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} productResp
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.CreateProduct(c.Request.Context(), req.Name, req.Price, req.Stock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResp(p))
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResp(p))
}

func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p, err := s.products.UpdateProduct(c.Request.Context(), catalogdomain.Product{
		ID:     id,
		Name:   req.Name,
		Price:  req.Price,
		Stock:  req.Stock,
		Active: active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResp(p))
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.products.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := s.products.ListProducts(c.Request.Context(), catalogapp.ListFilter{
		Query:      c.Query("q"),
		ActiveOnly: c.Query("active") == "true",
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]productResp, 0, len(out))
	for _, p := range out {
		resp = append(resp, toProductResp(p))
	}
	c.JSON(http.StatusOK, resp)
}

// Sale handlers

type saleLineReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type createSaleReq struct {
	MemberID   int64         `json:"member_id"`
	OccurredAt *time.Time    `json:"occurred_at"`
	Lines      []saleLineReq `json:"lines"`
}

type saleLineResp struct {
	ProductID int64  `json:"product_id"`
	Product   string `json:"product"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type saleResp struct {
	ID         int64          `json:"id"`
	MemberID   int64          `json:"member_id"`
	Member     string         `json:"member,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Total      string         `json:"total"`
	Lines      []saleLineResp `json:"lines,omitempty"`
}

func toSaleResp(s salesdomain.Sale) saleResp {
	resp := saleResp{
		ID:         s.ID,
		MemberID:   s.MemberID,
		Member:     s.MemberName,
		OccurredAt: s.OccurredAt,
		Total:      s.Total.StringFixed(2),
	}
	for _, l := range s.Lines {
		resp.Lines = append(resp.Lines, saleLineResp{
			ProductID: l.ProductID,
			Product:   l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	return resp
}

// createSale stages the request into a cart and commits it. Product
// snapshots are fetched concurrently, then merged in request order so
// duplicate product entries collapse the same way the UI cart does.
//
// @Summary Commit a sale
// @Tags sales
// @Accept json
// @Produce json
// @Param input body createSaleReq true "Sale"
// @Success 201 {object} saleResp
// @Failure 409 {object} map[string]any "insufficient stock"
// @Router /sales [post]
func (s *Server) createSale(c *gin.Context) {
	var req createSaleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Lines) == 0 {
		respondError(c, salesdomain.ErrEmptyCart)
		return
	}

	ctx := c.Request.Context()
	snapshots := make([]salesdomain.ProductSnapshot, len(req.Lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for idx := range req.Lines {
		idx := idx
		g.Go(func() error {
			p, err := s.products.GetProduct(gctx, req.Lines[idx].ProductID)
			if err != nil {
				return err
			}
			snapshots[idx] = salesdomain.ProductSnapshot{
				ID:    p.ID,
				Name:  p.Name,
				Price: p.Price,
				Stock: p.Stock,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}

	cart := salesdomain.NewCart()
	var err error
	for i, l := range req.Lines {
		if cart, err = cart.AddOrMerge(snapshots[i], l.Quantity); err != nil {
			respondError(c, err)
			return
		}
	}

	at := time.Now()
	if req.OccurredAt != nil {
		at = *req.OccurredAt
	}

	sale, err := s.sales.CommitSale(ctx, cart, req.MemberID, at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSaleResp(sale))
}

func (s *Server) getSale(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	sale, err := s.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSaleResp(sale))
}

func (s *Server) listSales(c *gin.Context) {
	f := salesapp.SaleFilter{}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		f.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		f.To = to
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))

	out, err := s.sales.ListSales(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]saleResp, 0, len(out))
	for _, sale := range out {
		resp = append(resp, toSaleResp(sale))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) voidSale(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.sales.VoidSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Payment handlers

type createPaymentReq struct {
	MemberID    int64           `json:"member_id"`
	Concept     string          `json:"concept"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	ExternalRef string          `json:"external_ref"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

type paymentResp struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Member      string    `json:"member,omitempty"`
	Concept     string    `json:"concept"`
	Amount      string    `json:"amount"`
	Method      string    `json:"method"`
	ExternalRef string    `json:"external_ref,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	ReversalOf  int64     `json:"reversal_of,omitempty"`
}

func toPaymentResp(p paydomain.Payment) paymentResp {
	return paymentResp{
		ID:          p.ID,
		MemberID:    p.MemberID,
		Member:      p.MemberName,
		Concept:     p.Concept,
		Amount:      p.Amount.StringFixed(2),
		Method:      p.Method,
		ExternalRef: p.ExternalRef,
		OccurredAt:  p.OccurredAt,
		ReversalOf:  p.ReversalOf,
	}
}

func (s *Server) createPayment(c *gin.Context) {
	var req createPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p := paydomain.Payment{
		MemberID:    req.MemberID,
		Concept:     req.Concept,
		Amount:      req.Amount,
		Method:      req.Method,
		ExternalRef: req.ExternalRef,
	}
	if req.OccurredAt != nil {
		p.OccurredAt = *req.OccurredAt
	}
	created, err := s.payments.CreatePayment(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResp(created))
}

func (s *Server) getPayment(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResp(p))
}

// listPayments returns JSON by default; ?format=csv streams the same
// rows as a download, like the back-office export button.
func (s *Server) listPayments(c *gin.Context) {
	f := payapp.ListFilter{
		MemberQuery:  c.Query("member"),
		ConceptQuery: c.Query("concept"),
		Method:       c.Query("method"),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		f.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		f.To = to
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))

	out, err := s.payments.ListPayments(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="payments.csv"`)
		if err := payapp.WriteCSV(c.Writer, out); err != nil {
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	resp := make([]paymentResp, 0, len(out))
	for _, p := range out {
		resp = append(resp, toPaymentResp(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"payments":     resp,
		"period_total": payapp.PeriodTotal(out).StringFixed(2),
	})
}

type reversePaymentReq struct {
	Reason string `json:"reason"`
}

func (s *Server) reversePayment(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req reversePaymentReq
	// An empty body is fine: the reason then defaults to the original concept.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rev, err := s.payments.ReversePayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResp(rev))
}
