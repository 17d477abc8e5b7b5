package nnaccel

// Package nnaccel talks to a neural network accelerator (eg Hailo-8L) through a
// loadable shared library. We dlopen the library at runtime instead of linking to
// it, so that the same binary runs on a Pi with or without the HailoRT stack
// installed. If the library is absent, Load() fails, and the caller falls back
// to a software detector.

/*
#cgo LDFLAGS: -ldl

#include <stdlib.h>
#include <stdio.h>
#include <stdint.h>
#include <string.h>
#include <dlfcn.h>

typedef struct _NNModelSetup {
	int   BatchSize;
	float ProbabilityThreshold;
	float NmsIouThreshold;
} NNModelSetup;

typedef struct _NNModelInfo {
	int BatchSize;
	int NChan;
	int Width;
	int Height;
} NNModelInfo;

typedef struct _NNAObjectDetection {
	uint32_t ClassID;
	float    Confidence;
	float    X;
	float    Y;
	float    Width;
	float    Height;
} NNAObjectDetection;

// Function table of a loadable accelerator library
typedef struct _NAccelLibrary {
	void* dlHandle;
	void* accelHandle;
	char*       (*nna_load)(void** accelHandle);
	const char* (*nna_device_name)(void* accelHandle);
	const char* (*nna_status_str)(int status);
	int         (*nna_load_model)(void* accelHandle, const char* filename, const NNModelSetup* setup, void** modelHandle);
	void        (*nna_model_info)(void* modelHandle, NNModelInfo* info);
	void        (*nna_close_model)(void* modelHandle);
	int         (*nna_run_model)(void* modelHandle, int batchSize, int batchStride, int width, int height, int nchan, int stride, const void* images, void** jobHandle);
	int         (*nna_wait_for_job)(void* jobHandle, uint32_t maxWaitMilliseconds);
	int         (*nna_get_object_detections)(void* jobHandle, int batchEl, size_t maxDetections, NNAObjectDetection** detections, size_t* numDetections);
	void        (*nna_close_job)(void* jobHandle);
} NAccelLibrary;

static void* naLoadSym(void* dl, const char* name, char** err) {
	void* s = dlsym(dl, name);
	if (s == NULL && *err == NULL) {
		const char* detail = dlerror();
		size_t len = strlen(name) + (detail ? strlen(detail) : 0) + 32;
		*err = (char*) malloc(len);
		snprintf(*err, len, "Failed to find symbol %s: %s", name, detail ? detail : "");
	}
	return s;
}

// Returns an error string (which the caller must free), or NULL on success
static char* LoadNNAccel(const char* path, NAccelLibrary** libOut) {
	void* dl = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	if (dl == NULL) {
		return strdup(dlerror());
	}
	NAccelLibrary* lib = (NAccelLibrary*) calloc(1, sizeof(NAccelLibrary));
	lib->dlHandle = dl;
	char* err = NULL;
	lib->nna_load                  = (char* (*)(void**)) naLoadSym(dl, "nna_load", &err);
	lib->nna_device_name           = (const char* (*)(void*)) naLoadSym(dl, "nna_device_name", &err);
	lib->nna_status_str            = (const char* (*)(int)) naLoadSym(dl, "nna_status_str", &err);
	lib->nna_load_model            = (int (*)(void*, const char*, const NNModelSetup*, void**)) naLoadSym(dl, "nna_load_model", &err);
	lib->nna_model_info            = (void (*)(void*, NNModelInfo*)) naLoadSym(dl, "nna_model_info", &err);
	lib->nna_close_model           = (void (*)(void*)) naLoadSym(dl, "nna_close_model", &err);
	lib->nna_run_model             = (int (*)(void*, int, int, int, int, int, int, const void*, void**)) naLoadSym(dl, "nna_run_model", &err);
	lib->nna_wait_for_job          = (int (*)(void*, uint32_t)) naLoadSym(dl, "nna_wait_for_job", &err);
	lib->nna_get_object_detections = (int (*)(void*, int, size_t, NNAObjectDetection**, size_t*)) naLoadSym(dl, "nna_get_object_detections", &err);
	lib->nna_close_job             = (void (*)(void*)) naLoadSym(dl, "nna_close_job", &err);
	if (err != NULL) {
		dlclose(dl);
		free(lib);
		return err;
	}
	char* loadErr = lib->nna_load(&lib->accelHandle);
	if (loadErr != NULL) {
		dlclose(dl);
		free(lib);
		return loadErr;
	}
	*libOut = lib;
	return NULL;
}

static const char* NADeviceName(NAccelLibrary* lib) {
	return lib->nna_device_name(lib->accelHandle);
}

static const char* NAStatusStr(NAccelLibrary* lib, int status) {
	return lib->nna_status_str(status);
}

static int NALoadModel(NAccelLibrary* lib, const char* filename, const NNModelSetup* setup, void** modelHandle) {
	return lib->nna_load_model(lib->accelHandle, filename, setup, modelHandle);
}

static void NAModelInfo(NAccelLibrary* lib, void* modelHandle, NNModelInfo* info) {
	lib->nna_model_info(modelHandle, info);
}

static void NACloseModel(NAccelLibrary* lib, void* modelHandle) {
	lib->nna_close_model(modelHandle);
}

static int NARunModel(NAccelLibrary* lib, void* modelHandle, int batchSize, int batchStride, int width, int height, int nchan, int stride, const void* images, void** jobHandle) {
	return lib->nna_run_model(modelHandle, batchSize, batchStride, width, height, nchan, stride, images, jobHandle);
}

static int NAWaitForJob(NAccelLibrary* lib, void* jobHandle, uint32_t maxWaitMilliseconds) {
	return lib->nna_wait_for_job(jobHandle, maxWaitMilliseconds);
}

static int NAGetObjectDetections(NAccelLibrary* lib, void* jobHandle, int batchEl, size_t maxDetections, NNAObjectDetection** detections, size_t* numDetections) {
	return lib->nna_get_object_detections(jobHandle, batchEl, maxDetections, detections, numDetections);
}

static void NACloseJob(NAccelLibrary* lib, void* jobHandle) {
	lib->nna_close_job(jobHandle);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"github.com/hailocam/hailocam/pkg/nn"
)

// Accelerator is a loaded accelerator library (eg libhailocamhailo.so)
type Accelerator struct {
	lib        *C.NAccelLibrary
	deviceName string
}

// Device is an accelerator chip that models can be loaded onto.
// The device name distinguishes variants of the same family, eg "8L" vs "8",
// which need different compiled model files.
type Device struct {
	accel *Accelerator
	Name  string
}

// Model is a neural network that has been loaded onto an accelerator.
// Model implements nn.ObjectDetector.
type Model struct {
	accel  *Accelerator   // The accelerator that created this model
	handle unsafe.Pointer // Handle to the model
	config nn.ModelConfig
}

// AsyncJob is an inference run that has been submitted to the accelerator
type AsyncJob struct {
	accel  *Accelerator   // The accelerator that ran the job
	handle unsafe.Pointer // Handle to the job
}

// Load an NN accelerator.
// At present, the only accelerator we have is "hailo".
func Load(accelName string) (*Accelerator, error) {
	cwd, _ := os.Getwd()

	// relative path from the source code root
	srcCodeRelPath := "nnaccel/" + accelName + "/bin"
	if strings.HasSuffix(cwd, "/nnaccel/"+accelName+"/test") {
		// We're being run as a Go unit test
		srcCodeRelPath = "../bin"
	}

	tryPaths := []string{
		srcCodeRelPath,
		"/usr/local/lib",
		"/usr/lib",
	}
	allErrors := strings.Builder{}
	for _, dir := range tryPaths {
		a := Accelerator{}
		fullPath := filepath.Join(dir, "libhailocam"+accelName+".so")
		cFullPath := C.CString(fullPath)
		err := CError(C.LoadNNAccel(cFullPath, &a.lib))
		C.free(unsafe.Pointer(cFullPath))
		if err != nil {
			fmt.Fprintf(&allErrors, "Loading %v: %v\n", fullPath, err)
		} else {
			a.deviceName = C.GoString(C.NADeviceName(a.lib))
			return &a, nil
		}
	}
	return nil, errors.New(allErrors.String())
}

func (a *Accelerator) StatusToErr(status C.int) error {
	if status != 0 {
		return errors.New(C.GoString(C.NAStatusStr(a.lib, status)))
	}
	return nil
}

// Name of the accelerator device, eg "hailo8l"
func (a *Accelerator) DeviceName() string {
	return a.deviceName
}

// Returns the device that we'll load models onto
func (a *Accelerator) Device() *Device {
	return &Device{
		accel: a,
		Name:  a.deviceName,
	}
}

// Returns the model file subdirectory and extensions for this device,
// eg ("hailo/8L", [".hef"])
func (d *Device) ModelFiles() (subdir string, ext []string) {
	return "hailo/" + d.Name, []string{".hef"}
}

// Load a model onto the device.
// filename is the path to the compiled model (eg "models/coco/hailo/8L/yolov8s_640_640.hef").
// We expect to find the model config JSON next to it, with the extension
// replaced by ".json".
func (d *Device) LoadModel(filename string, setup *nn.ModelSetup) (*Model, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	config, err := nn.LoadModelConfig(base + ".json")
	if err != nil {
		return nil, fmt.Errorf("Failed to load model config: %w", err)
	}
	a := d.accel
	model := Model{
		accel:  a,
		config: *config,
	}
	cFilename := C.CString(filename)
	cSetup := C.NNModelSetup{
		BatchSize:            C.int(setup.BatchSize),
		ProbabilityThreshold: C.float(setup.ProbabilityThreshold),
		NmsIouThreshold:      C.float(setup.NmsIouThreshold),
	}
	err = a.StatusToErr(C.NALoadModel(a.lib, cFilename, &cSetup, &model.handle))
	C.free(unsafe.Pointer(cFilename))
	if err != nil {
		return nil, err
	}
	// Sanity check that the compiled model matches its config JSON
	info := C.NNModelInfo{}
	C.NAModelInfo(a.lib, model.handle, &info)
	if int(info.Width) != config.Width || int(info.Height) != config.Height {
		model.Close()
		return nil, fmt.Errorf("Model input size %vx%v does not match config %vx%v", info.Width, info.Height, config.Width, config.Height)
	}
	return &model, nil
}

func (m *Model) Close() {
	C.NACloseModel(m.accel.lib, m.handle)
}

func (m *Model) Config() *nn.ModelConfig {
	return &m.config
}

// Submit a batch of images to the accelerator.
// batchStride is the number of bytes between the start of each image in the batch.
// The image memory should be page aligned (see PageAlignedAlloc), so that the
// accelerator driver can DMA straight out of it.
func (m *Model) Run(batchSize, batchStride, width, height, nchan, stride int, images unsafe.Pointer) (*AsyncJob, error) {
	job := &AsyncJob{
		accel: m.accel,
	}
	err := m.accel.StatusToErr(C.NARunModel(m.accel.lib, m.handle, C.int(batchSize), C.int(batchStride), C.int(width), C.int(height), C.int(nchan), C.int(stride), images, &job.handle))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// DetectObjects implements nn.ObjectDetector.
// Detection thresholds in params are ignored here. The accelerator runtime bakes
// them in when the model is loaded (see nn.ModelSetup), and also runs NMS itself,
// so the detections that come back are final.
func (m *Model) DetectObjects(img nn.ImageCrop, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	imgSize := img.CropWidth * img.CropHeight * img.NChan
	job, err := m.Run(1, imgSize, img.CropWidth, img.CropHeight, img.NChan, img.Stride(), img.Pointer())
	if err != nil {
		return nil, err
	}
	defer job.Close()
	if !job.Wait(5 * time.Second) {
		return nil, fmt.Errorf("Timeout waiting for NN result")
	}
	return job.GetObjectDetections(0)
}

// Returns true if the job is finished
func (j *AsyncJob) Wait(wait time.Duration) bool {
	milliseconds := wait / time.Millisecond
	if milliseconds > math.MaxInt32 {
		milliseconds = math.MaxInt32
	}
	return C.NAWaitForJob(j.accel.lib, j.handle, C.uint32_t(milliseconds)) == 0
}

// Fetch the detections for one element of the batch.
// Boxes are in NN input pixel coordinates.
func (j *AsyncJob) GetObjectDetections(batchEl int) ([]nn.ObjectDetection, error) {
	// This is an arbitrary limit.
	maxDetections := 1000
	var detections *C.NNAObjectDetection
	var numDetections C.size_t
	status := C.NAGetObjectDetections(j.accel.lib, j.handle, C.int(batchEl), C.size_t(maxDetections), &detections, &numDetections)
	if err := j.accel.StatusToErr(status); err != nil {
		return nil, err
	}
	dets := unsafe.Slice(detections, int(numDetections))
	out := make([]nn.ObjectDetection, len(dets))
	for i := 0; i < len(dets); i++ {
		out[i].Class = int(dets[i].ClassID)
		out[i].Confidence = float32(dets[i].Confidence)
		out[i].Box.X = int(dets[i].X)
		out[i].Box.Y = int(dets[i].Y)
		out[i].Box.Width = int(dets[i].Width)
		out[i].Box.Height = int(dets[i].Height)
	}
	C.free(unsafe.Pointer(detections))
	return out, nil
}

func (j *AsyncJob) Close() {
	C.NACloseJob(j.accel.lib, j.handle)
}

// Consume a C heap allocated char* and return it as a Go error.
// Before returning, free the C char*.
// If the input is NULL, then return nil.
func CError(cerr *C.char) error {
	if cerr != nil {
		err := errors.New(C.GoString(cerr))
		C.free(unsafe.Pointer(cerr))
		return err
	}
	return nil
}
