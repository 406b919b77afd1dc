package bridge

import (
	"errors"
	"image"

	"github.com/haivivi/starside/pkg/imageprovider"
	"github.com/haivivi/starside/pkg/interp"
	"github.com/haivivi/starside/pkg/value"
)

// importMode is how ImportModule binds dotted names: API 1.0 binds the
// module itself under its full name, later versions bind the top-level
// package.
func (b *Bridge) importMode() interp.ImportMode {
	if b.version.AtLeast(1, 2) {
		return interp.ImportTopLevel
	}
	return interp.ImportLeaf
}

// gate returns ErrUnsupported, also reported on the error channel, when
// the bridge's API version is older than major.minor.
func (b *Bridge) gate(major, minor int, what string) error {
	if err := b.version.requires(major, minor, what); err != nil {
		b.emitError(err.Error())
		return err
	}
	return nil
}

func (b *Bridge) importModule(name string) (value.Value, error) {
	err := b.in.ImportModule(name, b.importMode())
	return value.Bool(err == nil), err
}

// importNames succeeds when the module loads, even if some names are
// missing. Missing names come back as a joined error, one per name.
func (b *Bridge) importNames(module string, names []string) (value.Value, error) {
	err := b.in.ImportNames(module, names)
	_, missing := err.(interface{ Unwrap() []error })
	return value.Bool(err == nil || missing), err
}

// ImportModule imports name on the worker. cont receives true on success.
func (b *Bridge) ImportModule(name string, cont Continuation) error {
	return b.submit("importModule", cont, func() (value.Value, error) {
		return b.importModule(name)
	})
}

// ImportModuleSync imports name on the calling goroutine.
func (b *Bridge) ImportModuleSync(name string) (bool, error) {
	res, err := b.importModule(name)
	if err != nil {
		b.report(err)
	}
	return res.Bool(), err
}

// ImportNames binds names from module on the worker. cont receives true
// when the module loaded. Requires API 1.5.
func (b *Bridge) ImportNames(module string, names []string, cont Continuation) error {
	if err := b.gate(1, 5, "importNames()"); err != nil {
		return err
	}
	names = append([]string(nil), names...)
	return b.submit("importNames", cont, func() (value.Value, error) {
		return b.importNames(module, names)
	})
}

// ImportNamesSync binds names from module on the calling goroutine.
// Requires API 1.5.
func (b *Bridge) ImportNamesSync(module string, names []string) (bool, error) {
	if err := b.gate(1, 5, "importNames_sync()"); err != nil {
		return false, err
	}
	res, err := b.importNames(module, names)
	if err != nil {
		b.report(err)
	}
	return res.Bool(), err
}

// Call invokes callable with args on the worker; cont receives the
// result, or None after a reported error. callable is a name or dotted
// expression; passing a handle to a script callable requires API 1.4.
// Handles in callable and args must stay valid until cont runs.
func (b *Bridge) Call(callable, args value.Value, cont Continuation) error {
	if err := b.checkCallable(callable); err != nil {
		return err
	}
	return b.submit("call", cont, func() (value.Value, error) {
		return b.in.Call(callable, args)
	})
}

// CallSync invokes callable with args on the calling goroutine.
func (b *Bridge) CallSync(callable, args value.Value) (value.Value, error) {
	if err := b.checkCallable(callable); err != nil {
		return value.None(), err
	}
	res, err := b.in.Call(callable, args)
	if err != nil {
		b.report(err)
	}
	return res, err
}

func (b *Bridge) checkCallable(callable value.Value) error {
	if callable.Tag() == value.TagString {
		return nil
	}
	return b.gate(1, 4, "a callable object in call()")
}

// Evaluate evaluates expr on the calling goroutine.
func (b *Bridge) Evaluate(expr string) (value.Value, error) {
	res, err := b.in.Evaluate(expr)
	if err != nil {
		b.report(err)
	}
	return res, err
}

// Exec runs statements on the calling goroutine.
func (b *Bridge) Exec(src string) error {
	err := b.in.Exec(src)
	if err != nil {
		b.report(err)
	}
	return err
}

// GetAttr reads an attribute of a script object. Requires API 1.4.
func (b *Bridge) GetAttr(obj value.Value, attr string) (value.Value, error) {
	if err := b.gate(1, 4, "getattr()"); err != nil {
		return value.None(), err
	}
	res, err := b.in.GetAttr(obj, attr)
	if err != nil {
		b.report(err)
	}
	return res, err
}

// AddImportPath prepends path to the module search path.
func (b *Bridge) AddImportPath(path string) { b.in.AddImportPath(path) }

// RequestImage asks the script image provider for an image.
func (b *Bridge) RequestImage(id string, size imageprovider.Size) (image.Image, error) {
	img, err := b.in.RequestImage(id, size)
	if err != nil && !errors.Is(err, interp.ErrNoImageProvider) {
		b.report(err)
	}
	return img, err
}

// PluginVersion reports the bridge version.
func (b *Bridge) PluginVersion() string { return b.in.PluginVersion() }

// RuntimeVersion reports the embedded runtime version.
func (b *Bridge) RuntimeVersion() string { return b.in.RuntimeVersion() }
