package guardrail

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

// jpegPayload returns a base64 JPEG of the given size.
func jpegPayload(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidateSessionID(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	assert.NoError(t, svc.ValidateSessionID("cam-1"))
	assert.NoError(t, svc.ValidateSessionID("Session_42"))

	assert.Error(t, svc.ValidateSessionID(""))
	assert.Error(t, svc.ValidateSessionID(strings.Repeat("a", 257)))
	assert.Error(t, svc.ValidateSessionID("bad session"))
	assert.Error(t, svc.ValidateSessionID("bad/session"))
	assert.Error(t, svc.ValidateSessionID("sessão"))
}

func TestValidateFrame(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	img, err := svc.ValidateFrame(jpegPayload(t, 64, 48), "cam-1")
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 48, img.Rows())
	assert.Equal(t, 64, img.Cols())
	assert.Equal(t, 3, img.Channels())
}

func TestValidateFrameDataURLPrefix(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	payload := "data:image/jpeg;base64," + jpegPayload(t, 64, 48)
	img, err := svc.ValidateFrame(payload, "cam-1")
	require.NoError(t, err)
	img.Close()
}

func TestValidateFrameRejections(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	cases := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"too short", "aGVsbG8=", "too small"},
		{"not base64", strings.Repeat("!", 200), "invalid base64"},
		{"not an image", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 400)), "decode"},
		{"tiny dimensions", jpegPayload(t, 8, 8), "too small"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateFrame(tc.payload, "cam-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateFrameRateLimit(t *testing.T) {
	t.Setenv("GUARDRAIL_MAX_FPS", "3")
	svc := NewLimits(config.NewEnv())

	payload := jpegPayload(t, 64, 48)

	for i := 0; i < 3; i++ {
		img, err := svc.ValidateFrame(payload, "busy")
		require.NoError(t, err)
		img.Close()
	}

	_, err := svc.ValidateFrame(payload, "busy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")

	// Other sessions are unaffected
	img, err := svc.ValidateFrame(payload, "quiet")
	require.NoError(t, err)
	img.Close()

	// Resetting clears the window
	svc.ResetSession("busy")
	img, err = svc.ValidateFrame(payload, "busy")
	require.NoError(t, err)
	img.Close()
}

func TestFilterDetections(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	dets := []model.Detection{
		{BBox: [4]float64{10, 10, 100, 100}, Confidence: 0.9, ClassName: "person", TrackID: 1},
		{BBox: [4]float64{10, 10, 100, 100}, Confidence: 0.1, ClassName: "person", TrackID: 2},  // below confidence floor
		{BBox: [4]float64{100, 100, 10, 10}, Confidence: 0.9, ClassName: "person", TrackID: 3},  // inverted
		{BBox: [4]float64{-500, 10, 100, 100}, Confidence: 0.9, ClassName: "person", TrackID: 4}, // far out of bounds
		{BBox: [4]float64{10, 10, 14, 14}, Confidence: 0.9, ClassName: "person", TrackID: 5},    // area below floor
	}

	valid, warnings := svc.FilterDetections(dets, 480, 640)

	require.Len(t, valid, 1)
	assert.Equal(t, 1, valid[0].TrackID)
	assert.NotEmpty(t, warnings)
}

func TestFilterDetectionsClamping(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	// Slightly outside the frame: clamped, not rejected
	dets := []model.Detection{
		{BBox: [4]float64{-10, -10, 100, 100}, Confidence: 0.9, ClassName: "person", TrackID: 1},
	}

	valid, warnings := svc.FilterDetections(dets, 480, 640)

	require.Len(t, valid, 1)
	assert.Equal(t, [4]float64{0, 0, 100, 100}, valid[0].BBox)
	assert.NotEmpty(t, warnings)
}

func TestFilterDetectionsCap(t *testing.T) {
	t.Setenv("GUARDRAIL_MAX_DETECTIONS", "2")
	svc := NewLimits(config.NewEnv())

	dets := []model.Detection{
		{BBox: [4]float64{10, 10, 100, 100}, Confidence: 0.5, TrackID: 1},
		{BBox: [4]float64{10, 10, 100, 100}, Confidence: 0.9, TrackID: 2},
		{BBox: [4]float64{10, 10, 100, 100}, Confidence: 0.7, TrackID: 3},
	}

	valid, _ := svc.FilterDetections(dets, 480, 640)

	require.Len(t, valid, 2)
	// Highest-confidence detections survive
	assert.Equal(t, 2, valid[0].TrackID)
	assert.Equal(t, 3, valid[1].TrackID)
}

func TestFilterDetectionsEmpty(t *testing.T) {
	svc := NewLimits(config.NewEnv())

	valid, warnings := svc.FilterDetections(nil, 480, 640)
	assert.Empty(t, valid)
	assert.Empty(t, warnings)
}
