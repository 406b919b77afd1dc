package interp

import (
	"fmt"
	"image"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/imageprovider"
)

// HasImageProvider reports whether a script registered an image provider.
func (i *Interpreter) HasImageProvider() bool {
	release, err := i.enter()
	if err != nil {
		return false
	}
	defer release()
	return i.imageProvider != nil
}

// RequestImage asks the script image provider for the image with the given
// id. The provider is called as provider(id, (width, height)); decoding
// runs after the GIL is released.
func (i *Interpreter) RequestImage(id string, size imageprovider.Size) (image.Image, error) {
	res, err := i.callImageProvider(id, size)
	if err != nil {
		return nil, err
	}
	img, err := imageprovider.Decode(res, size)
	if err != nil {
		return nil, &Error{Op: "image", Msg: fmt.Sprintf("Invalid image for '%s'", id), Err: err}
	}
	return img, nil
}

func (i *Interpreter) callImageProvider(id string, size imageprovider.Size) (imageprovider.Result, error) {
	release, err := i.enter()
	if err != nil {
		return imageprovider.Result{}, err
	}
	defer release()

	if i.imageProvider == nil {
		return imageprovider.Result{}, ErrNoImageProvider
	}
	args := starlark.Tuple{
		starlark.String(id),
		starlark.Tuple{starlark.MakeInt(size.Width), starlark.MakeInt(size.Height)},
	}
	ret, err := starlark.Call(i.thread("image_provider"), i.imageProvider, args, nil)
	if err != nil {
		return imageprovider.Result{}, i.fail("image", fmt.Sprintf("Error calling image provider for '%s'", id), err)
	}
	res, err := imageResult(ret)
	if err != nil {
		return imageprovider.Result{}, &Error{Op: "image", Msg: fmt.Sprintf("Invalid image for '%s'", id), Err: err}
	}
	return res, nil
}

// imageResult unpacks (data, (width, height), format).
func imageResult(v starlark.Value) (imageprovider.Result, error) {
	var res imageprovider.Result
	t, ok := v.(starlark.Tuple)
	if !ok || len(t) != 3 {
		return res, fmt.Errorf("%w, got %s", ErrBadImageResult, v.Type())
	}

	switch data := t[0].(type) {
	case starlark.Bytes:
		res.Data = []byte(data)
	case starlark.String:
		res.Data = []byte(data)
	default:
		return res, fmt.Errorf("%w: data is %s", ErrBadImageResult, t[0].Type())
	}

	size, ok := t[1].(starlark.Tuple)
	if !ok || len(size) != 2 {
		return res, fmt.Errorf("%w: size is %s", ErrBadImageResult, t[1].Type())
	}
	w, err := starlark.AsInt32(size[0])
	if err != nil {
		return res, fmt.Errorf("%w: width: %w", ErrBadImageResult, err)
	}
	h, err := starlark.AsInt32(size[1])
	if err != nil {
		return res, fmt.Errorf("%w: height: %w", ErrBadImageResult, err)
	}
	f, err := starlark.AsInt32(t[2])
	if err != nil {
		return res, fmt.Errorf("%w: format: %w", ErrBadImageResult, err)
	}
	res.Width, res.Height, res.Format = w, h, imageprovider.Format(f)
	return res, nil
}
