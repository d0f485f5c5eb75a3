package otaservice

// LogFunc is the device-side logging hook. The device runs under TinyGo
// with no OS and no structured logger available, so unlike the client
// package this takes the teacher's bare println/fmt.Printf idiom rather
// than an injectable Logger interface. A nil LogFunc means silent.
type LogFunc func(format string, args ...interface{})
