package api

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oydokon/webshop/internal/media"
	"github.com/oydokon/webshop/internal/store"
)

// storeUpload saves one multipart file through the media store.
func (s *Server) storeUpload(fh *multipart.FileHeader, video bool) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	if video {
		return s.media.SaveVideo(fh.Filename, f)
	}
	return s.media.SaveImage(fh.Filename, f)
}

// productForm reads the shared multipart fields of create and update.
func productForm(c *gin.Context) (store.Product, error) {
	price, err := strconv.ParseInt(c.PostForm("price"), 10, 64)
	if err != nil {
		return store.Product{}, errors.New("price must be a whole number")
	}
	stock, _ := strconv.Atoi(c.DefaultPostForm("stock", "0"))

	p := store.Product{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Price:       price,
		Description: c.PostForm("description"),
		Stock:       stock,
	}
	if p.Name == "" {
		return store.Product{}, errors.New("name is required")
	}
	return p, nil
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	p, err := productForm(c)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if fh, err := c.FormFile("image"); err == nil {
		name, err := s.storeUpload(fh, false)
		if err != nil {
			s.uploadError(c, err)
			return
		}
		p.Image = name
	}

	videos, err := s.saveVideos(c)
	if err != nil {
		s.uploadError(c, err)
		return
	}
	p.Videos = strings.Join(videos, ",")

	id, err := s.store.CreateProduct(c.Request.Context(), &p)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("product created", "product", id, "name", p.Name)
	c.JSON(200, gin.H{"success": true, "product_id": id})
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid product id"})
		return
	}

	existing, err := s.store.GetProduct(c.Request.Context(), id)
	if errors.Is(err, store.ErrProductNotFound) {
		c.JSON(404, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	p, err := productForm(c)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	p.ID = id
	p.Image = existing.Image
	p.Videos = existing.Videos

	// A new image replaces the old file on disk.
	if fh, err := c.FormFile("image"); err == nil {
		name, err := s.storeUpload(fh, false)
		if err != nil {
			s.uploadError(c, err)
			return
		}
		s.media.Remove(existing.Image)
		p.Image = name
	}

	// New videos are appended, not replacing.
	videos, err := s.saveVideos(c)
	if err != nil {
		s.uploadError(c, err)
		return
	}
	if len(videos) > 0 {
		all := append(store.MediaList(existing.Videos), videos...)
		p.Videos = strings.Join(all, ",")
	}

	if err := s.store.UpdateProduct(c.Request.Context(), &p); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true})
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
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

	if err := s.store.DeleteProduct(c.Request.Context(), id); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	// The row is gone; its media files would otherwise be orphaned.
	s.media.Remove(p.Image)
	s.media.Remove(store.MediaList(p.Videos)...)

	s.logger.Info("product deleted", "product", id)
	c.JSON(200, gin.H{"success": true})
}

func (s *Server) saveVideos(c *gin.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil // no multipart body at all
	}
	var names []string
	for _, fh := range form.File["videos"] {
		name, err := s.storeUpload(fh, true)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Server) uploadError(c *gin.Context, err error) {
	if errors.Is(err, media.ErrUnsupportedType) {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(500, gin.H{"error": err.Error()})
}
