package ocr

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// Recognizer recognizes text in encoded image bytes. *Client satisfies
// it when built with the ocr tag.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
}

// ImageSource supplies the encoded pixels for one asset id. Returning
// nil bytes with a nil error skips the asset.
type ImageSource func(assetID string) ([]byte, error)

// RecoverCaptions fills in caption text for image assets that have
// none, leaving every other asset untouched. The input ledger is not
// modified; the returned ledger is a clone with recovered captions, and
// the count reports how many were filled.
func RecoverCaptions(rec Recognizer, led *ledger.AssetLedger, images ImageSource) (*ledger.AssetLedger, int, error) {
	out := led.Clone()

	recovered := 0
	for _, a := range out.Assets {
		if a.AssetType != model.AssetImage || a.CaptionText != "" {
			continue
		}

		data, err := images(a.AssetID)
		if err != nil {
			return nil, 0, fmt.Errorf("loading pixels for %s: %w", a.AssetID, err)
		}
		if data == nil {
			continue
		}

		text, err := rec.RecognizeImage(data)
		if err != nil {
			return nil, 0, fmt.Errorf("recognizing caption for %s: %w", a.AssetID, err)
		}
		if text == "" {
			continue
		}

		a.CaptionText = norm.NFC.String(text)
		recovered++
	}

	return out, recovered, nil
}
