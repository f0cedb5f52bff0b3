// Package api exposes the shop over HTTP and WebSocket endpoints.
package api

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/oydokon/webshop/internal/cart"
	"github.com/oydokon/webshop/internal/chat"
	"github.com/oydokon/webshop/internal/geo"
	"github.com/oydokon/webshop/internal/media"
	"github.com/oydokon/webshop/internal/printer"
	"github.com/oydokon/webshop/internal/receipt"
	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

func init() {
	// The cookie session store gob-encodes its values.
	gob.Register(cart.Cart{})
}

const sessionCartKey = "cart"

// Deps carries everything the server serves from. Advisor and Queue may
// be nil when chat or printing is not configured; their endpoints then
// answer 503.
type Deps struct {
	Store         *store.Store
	Receipts      *receipt.Generator
	Queue         *printer.Queue
	Media         *media.Store
	Advisor       *chat.Advisor
	Geo           *geo.Client
	SessionSecret string
	Logger        *log.Logger

	// ReceiptFont and ReceiptFontSize are the defaults applied when a
	// receipt request does not override them.
	ReceiptFont     string
	ReceiptFontSize float64
}

// Server is the API server.
type Server struct {
	router   *gin.Engine
	store    *store.Store
	receipts *receipt.Generator
	queue    *printer.Queue
	media    *media.Store
	advisor  *chat.Advisor
	geo      *geo.Client
	upgrader websocket.Upgrader
	logger   *log.Logger

	receiptFont     string
	receiptFontSize float64
}

// NewServer wires the routes.
func NewServer(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(sessions.Sessions("webshop", cookie.NewStore([]byte(d.SessionSecret))))

	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		router:   router,
		store:    d.Store,
		receipts: d.Receipts,
		queue:    d.Queue,
		media:    d.Media,
		advisor:  d.Advisor,
		geo:      d.Geo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger:          logger.With("component", "api"),
		receiptFont:     d.ReceiptFont,
		receiptFontSize: d.ReceiptFontSize,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/products", s.handleListProducts)
		api.GET("/products/:id", s.handleGetProduct)

		api.GET("/cart", s.handleGetCart)
		api.POST("/cart/add", s.handleCartAdd)
		api.POST("/cart/remove", s.handleCartRemove)
		api.POST("/cart/adjust", s.handleCartAdjust)

		api.POST("/checkout", s.handleCheckout)
		api.GET("/orders/:id", s.handleGetOrder)
		api.GET("/orders/:id/receipt", s.handleReceipt)
		api.POST("/orders/:id/print", s.handlePrint)

		api.GET("/jobs", s.handleGetJobs)
		api.GET("/jobs/:id", s.handleGetJob)

		api.GET("/reverse", s.handleReverse)
		api.POST("/chat", s.handleChat)

		admin := api.Group("/admin")
		{
			admin.POST("/products", s.handleCreateProduct)
			admin.PUT("/products/:id", s.handleUpdateProduct)
			admin.DELETE("/products/:id", s.handleDeleteProduct)
		}
	}

	// WebSocket
	s.router.GET("/ws/chat", s.handleChatSocket)

	if s.media != nil {
		s.router.Static("/uploads", s.media.Dir())
	}

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// productJSON expands stored media filenames into serving URLs.
func productJSON(p store.Product) gin.H {
	out := gin.H{
		"id":          p.ID,
		"name":        p.Name,
		"price":       p.Price,
		"description": p.Description,
		"stock":       p.Stock,
	}
	if p.Image != "" {
		out["image"] = p.Image
		out["image_url"] = "/uploads/" + p.Image
		out["thumb_url"] = "/uploads/thumb_" + p.Image
	}
	videos := store.MediaList(p.Videos)
	urls := make([]string, len(videos))
	for i, v := range videos {
		urls[i] = "/uploads/" + v
	}
	out["videos"] = urls
	return out
}

func (s *Server) handleListProducts(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	if limit < 1 || limit > 100 {
		limit = 12
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.store.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	total, err := s.store.CountProducts(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	views := make([]gin.H, len(products))
	for i, p := range products {
		views[i] = productJSON(p)
	}

	c.JSON(200, gin.H{
		"products": views,
		"total":    total,
		"has_more": offset+len(products) < total,
	})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid product id"})
		return
	}

	p, err := s.store.GetProduct(c.Request.Context(), id)
	if errors.Is(err, store.ErrProductNotFound) {
		c.JSON(404, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	recs, err := s.store.RandomProducts(c.Request.Context(), 4)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	recViews := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		if r.ID == p.ID {
			continue
		}
		recViews = append(recViews, productJSON(r))
	}

	c.JSON(200, gin.H{
		"product":         productJSON(*p),
		"recommendations": recViews,
	})
}

func sessionCart(c *gin.Context) cart.Cart {
	return cart.Normalize(sessions.Default(c).Get(sessionCartKey))
}

func saveCart(c *gin.Context, crt cart.Cart) error {
	sess := sessions.Default(c)
	sess.Set(sessionCartKey, crt)
	return sess.Save()
}

func (s *Server) respondCart(c *gin.Context, crt cart.Cart) {
	sum, err := cart.Resolve(c.Request.Context(), s.store, crt)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	// Resolve prunes dead entries; persist the healed cart.
	if err := saveCart(c, crt); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, sum)
}

func (s *Server) handleGetCart(c *gin.Context) {
	s.respondCart(c, sessionCart(c))
}

func (s *Server) handleCartAdd(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "product_id is required"})
		return
	}

	if _, err := s.store.GetProduct(c.Request.Context(), req.ProductID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			c.JSON(404, gin.H{"error": "product not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	crt := sessionCart(c)
	crt.Add(strconv.FormatInt(req.ProductID, 10), req.Quantity)
	s.respondCart(c, crt)
}

func (s *Server) handleCartRemove(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "product_id is required"})
		return
	}

	crt := sessionCart(c)
	crt.Remove(strconv.FormatInt(req.ProductID, 10))
	s.respondCart(c, crt)
}

func (s *Server) handleCartAdjust(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		Delta     int   `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "product_id and delta are required"})
		return
	}

	crt := sessionCart(c)
	crt.Adjust(strconv.FormatInt(req.ProductID, 10), req.Delta)
	s.respondCart(c, crt)
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone" binding:"required"`
		Address  string `json:"address"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "name and phone are required"})
		return
	}

	crt := sessionCart(c)
	sum, err := cart.Resolve(c.Request.Context(), s.store, crt)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if len(sum.Lines) == 0 {
		c.JSON(400, gin.H{"error": "cart is empty"})
		return
	}

	orderID, err := s.store.CreateOrder(c.Request.Context(), &store.Order{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		Location:   req.Location,
		Products:   orderformat.Encode(sum.Items()),
		TotalPrice: sum.Total,
		Status:     "new",
	})
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	if err := saveCart(c, cart.Cart{}); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("order placed", "order", orderID, "total", sum.Total)
	c.JSON(200, gin.H{"success": true, "order_id": orderID})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid order id"})
		return
	}

	order, err := s.store.Order(c.Request.Context(), id)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(404, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, order)
}

func (s *Server) handleReceipt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid order id"})
		return
	}

	opt := s.receiptOptions()
	if font := c.Query("font"); font != "" {
		opt.Font = font
	}
	if c.Query("format") == "png" {
		opt.Format = receipt.FormatPNG
	}
	if size, err := strconv.ParseFloat(c.Query("size"), 64); err == nil && size > 0 {
		opt.Size = size
	}

	doc, err := s.receipts.Generate(c.Request.Context(), id, opt)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(404, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(200, doc.ContentType, doc.Bytes)
}

// receiptOptions seeds a request with the configured defaults.
func (s *Server) receiptOptions() receipt.Options {
	return receipt.Options{Font: s.receiptFont, Size: s.receiptFontSize}
}

// handlePrint renders the PNG receipt and hands it to the print queue.
func (s *Server) handlePrint(c *gin.Context) {
	if s.queue == nil {
		c.JSON(503, gin.H{"error": "printing is not configured"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid order id"})
		return
	}

	opt := s.receiptOptions()
	opt.Format = receipt.FormatPNG
	doc, err := s.receipts.Generate(c.Request.Context(), id, opt)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(404, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	img, err := png.Decode(bytes.NewReader(doc.Bytes))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	jobID := s.queue.Enqueue(id, img)
	c.JSON(200, gin.H{"success": true, "job_id": jobID})
}

func (s *Server) handleGetJobs(c *gin.Context) {
	if s.queue == nil {
		c.JSON(503, gin.H{"error": "printing is not configured"})
		return
	}
	c.JSON(200, gin.H{"jobs": s.queue.Jobs()})
}

func (s *Server) handleGetJob(c *gin.Context) {
	if s.queue == nil {
		c.JSON(503, gin.H{"error": "printing is not configured"})
		return
	}
	job, ok := s.queue.Job(c.Param("id"))
	if !ok {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}
	c.JSON(200, job)
}

func (s *Server) handleReverse(c *gin.Context) {
	lat, lon := c.Query("lat"), c.Query("lon")
	if lat == "" || lon == "" {
		c.JSON(400, gin.H{"error": "lat and lon are required"})
		return
	}

	addr, err := s.geo.Reverse(c.Request.Context(), lat, lon)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"address": addr})
}

func (s *Server) handleChat(c *gin.Context) {
	if s.advisor == nil {
		c.JSON(503, gin.H{"error": "chat is not configured"})
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "message is required"})
		return
	}

	reply, err := s.advisor.Answer(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"reply": reply})
}

// Run starts the API server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, for tests and custom http.Server setups.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
