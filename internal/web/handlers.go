package web

import (
	"net/http"

	"urlsum/internal/pipeline"

	"github.com/labstack/echo/v4"
)

const kindException = "exception"

type summarizeRequest struct {
	APIKey string `json:"api_key"` //nolint:tagliatelle // public API field name
	URL    string `json:"url"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, pageTemplate, page{})
}

// handleForm never echoes the credential back into the page.
func (s *Server) handleForm(c echo.Context) error {
	rawURL := c.FormValue("url")

	summary, err := s.runner.Run(c.Request().Context(), c.FormValue("api_key"), rawURL)
	if err != nil {
		return c.Render(http.StatusOK, pageTemplate, page{
			URL:   rawURL,
			Error: pipeline.Message(err),
		})
	}

	return c.Render(http.StatusOK, pageTemplate, page{
		URL:     rawURL,
		Summary: summary,
	})
}

func (s *Server) handleAPI(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	summary, err := s.runner.Run(c.Request().Context(), req.APIKey, req.URL)
	if err != nil {
		status, kind := apiError(err)
		return c.JSON(status, errorResponse{
			Error: pipeline.Message(err),
			Kind:  kind,
		})
	}

	return c.JSON(http.StatusOK, summarizeResponse{Summary: summary})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func apiError(err error) (int, string) {
	switch kind := pipeline.KindOf(err); kind {
	case pipeline.KindMissingFields, pipeline.KindMalformedURL:
		return http.StatusBadRequest, kind.String()
	default:
		return http.StatusBadGateway, kindException
	}
}
