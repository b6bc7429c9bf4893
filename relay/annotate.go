package relay

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/session"
)

// Fixed palette; class id picks a color.
var classPalette = []color.RGBA{
	{R: 255, G: 0, B: 0, A: 0},
	{R: 0, G: 255, B: 0, A: 0},
	{R: 0, G: 0, B: 255, A: 0},
	{R: 255, G: 255, B: 0, A: 0},
	{R: 255, G: 0, B: 255, A: 0},
	{R: 0, G: 255, B: 255, A: 0},
	{R: 128, G: 0, B: 128, A: 0},
	{R: 255, G: 165, B: 0, A: 0},
	{R: 0, G: 128, B: 0, A: 0},
	{R: 0, G: 0, B: 128, A: 0},
}

func colorForClass(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return classPalette[classID%len(classPalette)]
}

// annotate draws bounding boxes, labels and track trails on a copy of
// the frame and returns it as a base64 JPEG.
func annotate(img gocv.Mat, detections []model.Detection, sessionSvc session.IService, sessionID string, jpegQuality int) (string, error) {
	annotated := img.Clone()
	defer annotated.Close()

	for _, det := range detections {
		clr := colorForClass(det.ClassID)
		rect := image.Rect(int(det.BBox[0]), int(det.BBox[1]), int(det.BBox[2]), int(det.BBox[3]))
		gocv.Rectangle(&annotated, rect, clr, 2)

		label := fmt.Sprintf("%s #%d (%.2f)", det.ClassName, det.TrackID, det.Confidence)
		labelSize := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)

		// Filled background behind the label text
		bg := image.Rect(rect.Min.X, rect.Min.Y-labelSize.Y-10, rect.Min.X+labelSize.X, rect.Min.Y)
		gocv.Rectangle(&annotated, bg, clr, -1)
		gocv.PutText(&annotated, label,
			image.Pt(rect.Min.X, rect.Min.Y-5),
			gocv.FontHersheySimplex, 0.5, color.RGBA{R: 255, G: 255, B: 255, A: 0}, 1)

		// Track trail from the session history
		history := sessionSvc.TrackHistory(sessionID, det.TrackID)
		if len(history) > 1 {
			points := make([]image.Point, len(history))
			for i, p := range history {
				points[i] = image.Pt(int(p.X), int(p.Y))
			}
			trail := gocv.NewPointsVectorFromPoints([][]image.Point{points})
			gocv.Polylines(&annotated, trail, false, clr, 2)
			trail.Close()
		}
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, annotated, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return "", err
	}
	defer buf.Close()

	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
