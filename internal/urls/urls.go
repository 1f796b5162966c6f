package urls

// FirmwareBase is the vendor host serving per-model firmware descriptors.
// The descriptor for a model lives at FirmwareBase + "/" + model + "/RVU.json".
const FirmwareBase = "https://firmware.ptzoptics.com"

// CameraCGIReference documents the HTTP-CGI commands the camera accepts.
const CameraCGIReference = "https://ptzoptics.com/wp-content/uploads/2020/11/PTZOptics-HTTP-CGI-Commands-Rev-1_4-8-20.pdf"

// FirmwareDownloads is the vendor firmware download page, shown when an
// update is available.
const FirmwareDownloads = "https://ptzoptics.com/firmware-changelog/"
