package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"lanecount-worker-go/internal/models"
)

// ContourFinder smooths a lane mask with repeated dilation then erosion and
// reports its external contours. It keeps no state, so lane workers may call
// it concurrently.
type ContourFinder struct {
	DilateIterations int
	ErodeIterations  int
}

func NewContourFinder(dilate, erode int) *ContourFinder {
	return &ContourFinder{DilateIterations: dilate, ErodeIterations: erode}
}

func (f *ContourFinder) FindRegions(mask *image.Gray) ([]models.Region, error) {
	if mask == nil || mask.Rect.Empty() {
		return nil, errors.New("empty mask")
	}

	mat, err := GrayToMat(mask)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	for i := 0; i < f.DilateIterations; i++ {
		gocv.Dilate(mat, &mat, kernel)
	}
	for i := 0; i < f.ErodeIterations; i++ {
		gocv.Erode(mat, &mat, kernel)
	}

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]models.Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		regions = append(regions, models.Region{
			Box:    gocv.BoundingRect(contour),
			Area:   gocv.ContourArea(contour),
			Points: contour.Size(),
		})
	}
	return regions, nil
}
