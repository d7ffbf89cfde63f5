package support

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/testutil"
	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/cucumber/godog"
)

// theMapFixtureAs writes a standard probability map fixture as .png or .json.
func (testCtx *TestContext) theMapFixtureAs(name, format string) error {
	f, ok := testutil.MapFixtureByName(name)
	if !ok {
		return fmt.Errorf("unknown map fixture %q", name)
	}

	path := filepath.Join(testCtx.TempDir, name+"."+format)
	switch format {
	case "png":
		if err := utils.SaveImage(path, detector.MapToImage(f.Map())); err != nil {
			return err
		}
	case "json":
		data, err := json.Marshal(f.Map())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported fixture format %q", format)
	}
	testCtx.Files[name+"."+format] = path
	return nil
}

// aTextImage renders a synthetic page with the given lines.
func (testCtx *TestContext) aTextImage(name string, width, height int, lines string) error {
	cfg := testutil.DefaultTextImageConfig()
	cfg.Width, cfg.Height = width, height
	cfg.Lines = strings.Split(lines, "|")
	path := filepath.Join(testCtx.TempDir, name)
	if err := utils.SaveImage(path, testutil.GenerateTextImage(cfg)); err != nil {
		return err
	}
	testCtx.Files[name] = path
	return nil
}

// aBlankImage writes a uniform gray image.
func (testCtx *TestContext) aBlankImage(name string, width, height int) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := utils.SaveImage(path, testutil.CreateTestImage(width, height, color.Gray{Y: 128})); err != nil {
		return err
	}
	testCtx.Files[name] = path
	return nil
}

// aFileWithContent writes a doc string to the scratch directory.
func (testCtx *TestContext) aFileWithContent(name string, content *godog.DocString) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content.Content), 0o600); err != nil {
		return err
	}
	testCtx.Files[name] = path
	return nil
}

// theImageShouldMeasure decodes an output image and checks its size.
func (testCtx *TestContext) theImageShouldMeasure(name string, width, height int) error {
	img, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("image %s: expected %dx%d, got %dx%d", name, width, height, b.Dx(), b.Dy())
	}
	return nil
}

// RegisterFixtureSteps registers steps that create inputs.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the map fixture "([^"]*)" as (png|json)$`, testCtx.theMapFixtureAs)
	sc.Step(`^a text image "([^"]*)" of (\d+)x(\d+) reading "([^"]*)"$`, testCtx.aTextImage)
	sc.Step(`^a blank image "([^"]*)" of (\d+)x(\d+)$`, testCtx.aBlankImage)
	sc.Step(`^a file "([^"]*)" with:$`, testCtx.aFileWithContent)
	sc.Step(`^the image "([^"]*)" should measure (\d+)x(\d+)$`, testCtx.theImageShouldMeasure)
}
