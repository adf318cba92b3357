package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/requests"
)

// Handler maps each route to one namespace operation
type Handler struct {
	op memfs.Operator
}

// NewHandler creates a handler serving op
func NewHandler(op memfs.Operator) *Handler {
	return &Handler{op: op}
}

// statusFor picks the HTTP status for a failed operation
func statusFor(err error) int {
	if errors.Is(err, memfs.ErrPersistence) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func fail(c *gin.Context, status int, detail string, err error) {
	_ = c.Error(err)
	c.JSON(status, requests.ErrorResponse{Detail: fmt.Sprintf("%s: %v", detail, err)})
}

func (h *Handler) Mkdir(c *gin.Context) {
	name := c.Param("name")
	if err := h.op.Mkdir(name); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to create directory '%s'", name), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Directory '%s' created successfully", name)})
}

func (h *Handler) Cd(c *gin.Context) {
	path := c.Query("path")
	if err := h.op.Cd(path); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to change directory to '%s'", path), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Current directory changed to '%s'", h.op.Pwd())})
}

func (h *Handler) Pwd(c *gin.Context) {
	c.JSON(http.StatusOK, requests.PwdResponse{CurrentDirectory: h.op.Pwd()})
}

// Ls answers 200 with an empty list for a missing or non-directory path
func (h *Handler) Ls(c *gin.Context) {
	contents, err := h.op.Ls(c.Query("path"))
	resp := requests.ListResponse{Contents: contents}
	if err != nil {
		_ = c.Error(err)
		resp.Detail = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Grep answers 200 with no lines for a missing or non-file path
func (h *Handler) Grep(c *gin.Context) {
	lines, err := h.op.Grep(c.Param("file"), c.Param("pattern"))
	resp := requests.GrepResponse{MatchingLines: lines}
	if err != nil {
		_ = c.Error(err)
		resp.Detail = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Cat(c *gin.Context) {
	file := c.Param("file")
	contents, err := h.op.Cat(file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, memfs.ErrNotFound) {
			status = http.StatusNotFound
		}
		fail(c, status, fmt.Sprintf("File '%s' not found", file), err)
		return
	}
	c.JSON(http.StatusOK, requests.CatResponse{Contents: contents})
}

func (h *Handler) Touch(c *gin.Context) {
	file := c.Param("file")
	if err := h.op.Touch(file); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to create file '%s'", file), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Empty file '%s' created successfully", file)})
}

func (h *Handler) Echo(c *gin.Context) {
	file := c.Param("file")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	req, err := requests.UnmarshalEchoRequest(body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Malformed request body", err)
		return
	}
	text, hasText := c.GetQuery("text")
	del, hasDel := c.GetQuery("delete")
	if err := req.ApplyQuery(text, hasText, del, hasDel); err != nil {
		fail(c, http.StatusBadRequest, "Invalid delete parameter", err)
		return
	}

	if err := h.op.Echo(req.Text, file, req.Delete); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to write text to file '%s'", file), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Text written to file '%s'", file)})
}

func (h *Handler) Mv(c *gin.Context) {
	src, dst := c.Param("source"), c.Param("destination")
	if err := h.op.Mv(src, dst); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to move '%s' to '%s'", src, dst), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Moved '%s' to '%s'", src, dst)})
}

func (h *Handler) Cp(c *gin.Context) {
	src, dst := c.Param("source"), c.Param("destination")
	if err := h.op.Cp(src, dst); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to copy '%s' to '%s'", src, dst), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Copied '%s' to '%s'", src, dst)})
}

func (h *Handler) Rm(c *gin.Context) {
	path := c.Param("path")
	if err := h.op.Rm(path); err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to remove '%s'", path), err)
		return
	}
	c.JSON(http.StatusOK, requests.MessageResponse{Message: fmt.Sprintf("Removed '%s'", path)})
}

func (h *Handler) Find(c *gin.Context) {
	pattern := c.Query("pattern")
	paths, err := h.op.Find(pattern)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Invalid pattern '%s'", pattern), err)
		return
	}
	c.JSON(http.StatusOK, requests.FindResponse{Paths: paths})
}
