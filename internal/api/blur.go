package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/config"
	"github.com/rm-hull/blurr/internal/dispatch"
	"github.com/rm-hull/blurr/internal/png"
	"github.com/rm-hull/blurr/internal/png/stage"
	"github.com/rm-hull/blurr/internal/source"
	"github.com/rs/zerolog/log"
)

type ParametersResponse struct {
	ScaleFactor float64 `json:"scale_factor"`
	Radius      float64 `json:"radius"`
	MinRadius   float64 `json:"min_radius"`
	MaxRadius   float64 `json:"max_radius"`
}

// Register wires the blur endpoints onto the router.
func Register(r gin.IRouter, cfg *config.Config, dispatcher *dispatch.Dispatcher) {
	v1 := r.Group("/v1/blur")
	v1.POST("", BlurHandler(cfg, dispatcher))
	v1.GET("/parameters", ParametersHandler(cfg))
}

func ParametersHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ParametersResponse{
			ScaleFactor: cfg.ScaleFactor,
			Radius:      cfg.Radius,
			MinRadius:   0,
			MaxRadius:   blur.MaxRadius,
		})
	}
}

// BlurHandler blurs the image in the request body. Query parameters scale and
// radius override the configured defaults; restore=true resamples the result
// back to the uploaded size.
func BlurHandler(cfg *config.Config, dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, restore, err := parseQuery(c, cfg.Parameters())
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abort(c, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", tooLarge.Limit))
				return
			}
			abort(c, http.StatusBadRequest, err)
			return
		}
		if len(body) == 0 {
			abort(c, http.StatusBadRequest, errors.New("request body must contain an image"))
			return
		}

		img, err := png.NewPngFromReader(bytes.NewReader(body))
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		width, height := img.Buf.Width, img.Buf.Height

		engine := blur.NewEngine().WithParameters(params.ScaleFactor, params.Radius)
		results, err := dispatcher.Submit(c.Request.Context(), engine, source.Bitmap{Buffer: img.Buf})
		if err != nil {
			abort(c, http.StatusServiceUnavailable, err)
			return
		}

		var result dispatch.Result
		select {
		case result = <-results:
		case <-c.Request.Context().Done():
			abort(c, http.StatusServiceUnavailable, c.Request.Context().Err())
			return
		}
		if result.Err != nil {
			abort(c, statusFor(result.Err), result.Err)
			return
		}

		img.Buf = result.Buffer
		if restore {
			if err := img.Pipeline(&stage.ResampleStage{Width: width, Height: height}); err != nil {
				abort(c, http.StatusInternalServerError, err)
				return
			}
		}

		var out bytes.Buffer
		if err := img.Write(&out); err != nil {
			abort(c, http.StatusInternalServerError, err)
			return
		}

		log.Debug().
			Str("job", result.JobID.String()).
			Int("width", img.Buf.Width).
			Int("height", img.Buf.Height).
			Dur("elapsed", result.Elapsed).
			Msg("blur request served")

		c.Header("X-Blur-Width", strconv.Itoa(img.Buf.Width))
		c.Header("X-Blur-Height", strconv.Itoa(img.Buf.Height))
		c.Header("X-Blur-Job", result.JobID.String())
		c.Data(http.StatusOK, "image/png", out.Bytes())
	}
}

func parseQuery(c *gin.Context, defaults blur.Parameters) (blur.Parameters, bool, error) {
	params := defaults
	var restore bool
	var err error

	if value := c.Query("scale"); value != "" {
		if params.ScaleFactor, err = strconv.ParseFloat(value, 64); err != nil {
			return params, false, fmt.Errorf("%w: scale %q is not a number", blur.ErrInvalidParameter, value)
		}
	}
	if value := c.Query("radius"); value != "" {
		if params.Radius, err = strconv.ParseFloat(value, 64); err != nil {
			return params, false, fmt.Errorf("%w: radius %q is not a number", blur.ErrInvalidParameter, value)
		}
	}
	if value := c.Query("restore"); value != "" {
		if restore, err = strconv.ParseBool(value); err != nil {
			return params, false, fmt.Errorf("restore %q is not a boolean", value)
		}
	}

	if err := params.Validate(); err != nil {
		return params, false, err
	}
	return params, restore, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, blur.ErrInvalidParameter), errors.Is(err, blur.ErrInvalidInput), errors.Is(err, source.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("blur request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
