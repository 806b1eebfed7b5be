package gstreamer

/*
#cgo pkg-config: gstreamer-1.0
#include <stdlib.h>
#include <gst/gst.h>
*/
import "C"

import (
	"runtime"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"
)

// deviceProvider wraps a GstDeviceProvider. go-gst has no binding for it.
type deviceProvider struct {
	ptr *C.GstDeviceProvider
}

// findDeviceProvider loads the provider factory registered under name.
// It returns nil when no such factory exists.
func findDeviceProvider(name string) *deviceProvider {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	ptr := C.gst_device_provider_factory_get_by_name((*C.gchar)(cName))
	if ptr == nil {
		return nil
	}
	p := &deviceProvider{ptr: ptr}
	runtime.SetFinalizer(p, func(p *deviceProvider) {
		C.gst_object_unref(C.gpointer(unsafe.Pointer(p.ptr)))
	})
	return p
}

func (p *deviceProvider) start() bool {
	return gobool(C.gst_device_provider_start(p.ptr))
}

func (p *deviceProvider) stop() {
	C.gst_device_provider_stop(p.ptr)
}

// devices returns the devices the provider currently knows about. Each
// device is owned by the returned wrapper.
func (p *deviceProvider) devices() []*gst.Device {
	list := C.gst_device_provider_get_devices(p.ptr)
	if list == nil {
		return nil
	}
	defer C.g_list_free(list)

	var out []*gst.Device
	for l := list; l != nil; l = l.next {
		out = append(out, gst.FromGstDeviceUnsafeFull(unsafe.Pointer(l.data)))
	}
	return out
}

// parseErrorOrigin reads the GError domain and code of an error message,
// which go-gst's GError does not carry.
func parseErrorOrigin(msg *gst.Message) (domain string, code int) {
	var gerr *C.GError
	C.gst_message_parse_error((*C.GstMessage)(unsafe.Pointer(msg.Instance())), &gerr, nil)
	if gerr == nil {
		return "", 0
	}
	defer C.g_error_free(gerr)
	return C.GoString(C.g_quark_to_string(gerr.domain)), int(gerr.code)
}

func gobool(b C.gboolean) bool {
	return int(b) > 0
}
