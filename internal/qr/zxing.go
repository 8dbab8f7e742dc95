package qr

import (
	"errors"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoSymbol reports that a reader found no QR symbol in the image.
var ErrNoSymbol = errors.New("no qr symbol found")

// ZXingReader decodes QR symbols with gozxing.
type ZXingReader struct {
	multi  multi.MultipleBarcodeReader
	single gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewZXingReader() *ZXingReader {
	return &ZXingReader{
		multi:  multiqr.NewQRCodeMultiReader(),
		single: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (z *ZXingReader) DecodeMultiple(img image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}
	results, err := z.multi.DecodeMultiple(bmp, z.hints)
	if err != nil {
		return nil, notFound(err)
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.GetText())
	}
	return out, nil
}

func (z *ZXingReader) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}
	res, err := z.single.Decode(bmp, z.hints)
	if err != nil {
		return "", notFound(err)
	}
	return res.GetText(), nil
}

func notFound(err error) error {
	var nf gozxing.NotFoundException
	if errors.As(err, &nf) {
		return ErrNoSymbol
	}
	return err
}
