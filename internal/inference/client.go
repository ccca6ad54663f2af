// Package inference talks to the external model server. The model is an
// opaque capability: given a JPEG frame it returns classified boxes with
// confidences. Nothing here knows or cares which model runs behind it.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/visionops/restaurant-analytics/internal/models"
)

// wireDetection is the model server's response shape.
type wireDetection struct {
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"` // [x1, y1, x2, y2]
}

type Client struct {
	url  string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		url:  baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

// Infer posts a JPEG frame to /predict and returns the detections found in
// it. The call may be slow; it honors ctx. Detection centers are derived
// here so downstream code never recomputes them.
func (c *Client) Infer(ctx context.Context, frame []byte) ([]models.Detection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, bodyBytes)
	}

	var wire []wireDetection
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	now := time.Now()
	dets := make([]models.Detection, 0, len(wire))
	for _, w := range wire {
		if len(w.Box) != 4 {
			return nil, fmt.Errorf("malformed box in detection response: %v", w.Box)
		}
		box := models.BoundingBox{X1: w.Box[0], Y1: w.Box[1], X2: w.Box[2], Y2: w.Box[3]}
		dets = append(dets, models.Detection{
			ClassID:    w.ClassID,
			Confidence: w.Confidence,
			Box:        box,
			Center:     box.Center(),
			Timestamp:  now,
		})
	}
	return dets, nil
}
