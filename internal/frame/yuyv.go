package frame

import "image"

// yuyvToRGBA converts a packed YUYV (YUV 4:2:2) buffer to an RGBA image
// using the BT.601 conversion. Returns nil if the buffer does not match
// the stated dimensions.
func yuyvToRGBA(data []byte, width, height int) *image.RGBA {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil
	}
	if len(data) < width*height*2 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		row := data[y*width*2 : (y+1)*width*2]
		for x := 0; x < width; x += 2 {
			i := x * 2
			y0 := int(row[i])
			u := int(row[i+1])
			y1 := int(row[i+2])
			v := int(row[i+3])

			setYUV(img, x, y, y0, u, v)
			if x+1 < width {
				setYUV(img, x+1, y, y1, u, v)
			}
		}
	}

	return img
}

func setYUV(img *image.RGBA, x, y, lum, u, v int) {
	c := 298 * (lum - 16)
	d := u - 128
	e := v - 128

	r := clamp((c + 409*e + 128) >> 8)
	g := clamp((c - 100*d - 208*e + 128) >> 8)
	b := clamp((c + 516*d + 128) >> 8)

	off := img.PixOffset(x, y)
	img.Pix[off+0] = uint8(r)
	img.Pix[off+1] = uint8(g)
	img.Pix[off+2] = uint8(b)
	img.Pix[off+3] = 0xff
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
