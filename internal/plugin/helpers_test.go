package plugin

import "github.com/MeKo-Tech/visionbridge/internal/factory"

// gozxingBackend is the real barcode backend without try-harder.
var gozxingBackend = factory.GozxingBackend(false)
