package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedding"
)

const defaultExtractorURL = "http://localhost:8000"

// HTTPClient computes face embeddings using the embedding server's /embed/face endpoint.
type HTTPClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPClient creates a new embedding server client.
func NewHTTPClient(baseURL, model string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection is a single face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response of the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Extract posts the image and returns the detected faces in server order.
func (c *HTTPClient) Extract(ctx context.Context, image []byte) (Result, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", image)
	if err != nil {
		return Result{}, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, &Error{Kind: KindUnavailable, Op: "decode", Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	result := Result{Model: resp.Model, Faces: make([]Face, 0, len(resp.Faces))}
	if result.Model == "" {
		result.Model = c.model
	}
	for i, f := range resp.Faces {
		vec, err := embedding.FromSlice(f.Embedding)
		if err != nil {
			return Result{}, &Error{Kind: KindUnavailable, Op: "decode", Err: fmt.Errorf("face %d: %w", i, err)}
		}
		face := Face{Embedding: vec, Score: f.DetScore}
		copy(face.BBox[:], f.BBox)
		result.Faces = append(result.Faces, face)
	}
	return result, nil
}

// postMultipartImage posts the image as the "file" form field with a detected MIME type.
func (c *HTTPClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "encode", Err: fmt.Errorf("failed to create form file: %w", err)}
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "encode", Err: fmt.Errorf("failed to write image data: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "encode", Err: fmt.Errorf("failed to close multipart writer: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "request", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "request", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: "response", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return nil, &Error{Kind: KindUnreadable, Op: "response", Err: fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))}
	default:
		return nil, &Error{Kind: KindUnavailable, Op: "response", Err: fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))}
	}
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
