package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/catalog/internal/catalog/domain"
)

type productForm struct {
	Name        string   `form:"name"`
	Description string   `form:"description"`
	Price       *float64 `form:"price"`
}

type listProductsQuery struct {
	Skip  int `form:"skip,default=0"`
	Limit int `form:"limit,default=100"`
}

func (s *Server) ListProducts(c *gin.Context) {
	var query listProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Offset: query.Skip,
		Limit:  query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetProductByID(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateProduct(c *gin.Context) {
	form, upload, cleanup, err := bindProductForm(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest{
		Name:        strings.TrimSpace(form.Name),
		Description: form.Description,
		Price:       *form.Price,
		Image:       upload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	form, upload, cleanup, err := bindProductForm(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	resp, err := s.catalogSvc.Update(c.Request.Context(), catalogdomain.UpdateRequest{
		ID:          id,
		Name:        strings.TrimSpace(form.Name),
		Description: form.Description,
		Price:       *form.Price,
		Image:       upload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteProduct(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.catalogSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func parseProductID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		return 0, catalogdomain.ErrInvalidID
	}
	return id, nil
}

// bindProductForm parses the multipart form shared by create and update.
// The returned cleanup closes the upload stream; it is nil when no file
// was sent.
func bindProductForm(c *gin.Context) (*productForm, *catalogdomain.Upload, func(), error) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		return nil, nil, nil, invalidRequestError()
	}
	if strings.TrimSpace(form.Name) == "" {
		return nil, nil, nil, newValidationError("name", "invalid_name", "name is required")
	}
	if form.Price == nil {
		return nil, nil, nil, newValidationError("price", "price_required", "price is required")
	}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return &form, nil, nil, nil
		}
		return nil, nil, nil, invalidRequestError()
	}

	content, err := file.Open()
	if err != nil {
		return nil, nil, nil, err
	}

	upload := &catalogdomain.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     content,
	}
	return &form, upload, func() { content.Close() }, nil
}
