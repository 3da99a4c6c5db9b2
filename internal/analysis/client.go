package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/oddseye/oddseye/internal/logger"
	xdraw "golang.org/x/image/draw"
)

const (
	requestTimeout = 30 * time.Second
	qualityTimeout = 5 * time.Second

	// maxUploadWidth caps the encoded frame; a 4K poker client does not need
	// 4K worth of upload per second.
	maxUploadWidth = 1920
)

// Client talks to the card-detection API. Every outcome of Analyze is a
// displayable Result; the scan loop never sees a raw transport error.
type Client struct {
	apiURL     string
	qualityURL string
	licenseKey string
	quality    int
	httpClient *http.Client
}

// NewClient builds a client with the given endpoints and license key.
// quality is the JPEG encode quality in [1,100].
func NewClient(apiURL, qualityURL, licenseKey string, quality int) *Client {
	if quality < 1 || quality > 100 {
		quality = 100
	}
	return &Client{
		apiURL:     apiURL,
		qualityURL: qualityURL,
		licenseKey: licenseKey,
		quality:    quality,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// SetQuality updates the JPEG encode quality, ignoring out-of-range values.
func (c *Client) SetQuality(quality int) {
	if quality >= 1 && quality <= 100 {
		c.quality = quality
	}
}

// apiResponse is the wire shape of the detection endpoint.
type apiResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Message string  `json:"message"`
	Data    apiData `json:"data"`
}

type apiData struct {
	HoleCards                 []string           `json:"hole_cards"`
	CommunityCards            []string           `json:"community_cards"`
	Opponents                 int                `json:"opponents"`
	WinRate                   float64            `json:"win_rate"`
	TieRate                   float64            `json:"tie_rate"`
	LoseRate                  float64            `json:"lose_rate"`
	OurHandProbabilities      map[string]float64 `json:"our_hand_probabilities"`
	OpponentHandProbabilities map[string]float64 `json:"opponent_hand_probabilities"`
}

// Analyze uploads the frame with the given opponent count and returns the
// detection result. Timeouts and non-200 responses come back in the same
// failure shape as a local capture failure.
func (c *Client) Analyze(ctx context.Context, frame *image.RGBA, opponents int) Result {
	body, contentType, err := c.encodeRequest(frame, opponents)
	if err != nil {
		return Errorf("failed to encode screenshot: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-License-Key", c.licenseKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Errorf("API request timed out")
		}
		return Errorf("network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Errorf("%s", statusError(resp))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Errorf("unreadable API response: %v", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "unknown API error"
		}
		return Errorf("%s", msg)
	}

	d := parsed.Data
	return Result{
		Success:                   true,
		HoleCards:                 d.HoleCards,
		CommunityCards:            d.CommunityCards,
		Opponents:                 d.Opponents,
		WinRate:                   d.WinRate,
		TieRate:                   d.TieRate,
		LoseRate:                  d.LoseRate,
		OurHandProbabilities:      d.OurHandProbabilities,
		OpponentHandProbabilities: d.OpponentHandProbabilities,
	}
}

// encodeRequest builds the multipart body: the JPEG frame plus the opponent
// count as a form field.
func (c *Client) encodeRequest(frame *image.RGBA, opponents int) (*bytes.Buffer, string, error) {
	frame = downscale(frame, maxUploadWidth)

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, frame, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, "", fmt.Errorf("jpeg encode: %w", err)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="screenshot.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(jpg.Bytes()); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("opponents", strconv.Itoa(opponents)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// IdealQuality asks the API for its preferred JPEG quality, keeping the
// current value on any failure or out-of-range answer.
func (c *Client) IdealQuality(ctx context.Context) int {
	log := logger.WithComponent("analysis")

	ctx, cancel := context.WithTimeout(ctx, qualityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.qualityURL, nil)
	if err != nil {
		return c.quality
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("quality endpoint unreachable, keeping default")
		return c.quality
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.quality
	}

	var parsed struct {
		Quality int `json:"quality"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return c.quality
	}
	if parsed.Quality < 1 || parsed.Quality > 100 {
		return c.quality
	}
	return parsed.Quality
}

// statusError extracts a human-readable message from a non-200 response.
func statusError(resp *http.Response) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
		for _, raw := range []json.RawMessage{parsed.Error, parsed.Message} {
			if len(raw) == 0 {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
			// The API sometimes nests the error; surface it verbatim.
			return string(raw)
		}
	}
	return fmt.Sprintf("API returned status %d", resp.StatusCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// downscale shrinks frames wider than maxWidth, preserving aspect ratio.
func downscale(frame *image.RGBA, maxWidth int) *image.RGBA {
	b := frame.Bounds()
	if b.Dx() <= maxWidth {
		return frame
	}
	h := b.Dy() * maxWidth / b.Dx()
	scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), frame, b, xdraw.Over, nil)
	return scaled
}
