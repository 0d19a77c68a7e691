package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("WrapString changed a short text: %q", got)
	}
}

func TestParseBytes(t *testing.T) {
	b, err := ParseBytes("key", false)
	if err != nil || string(b) != "key" {
		t.Fatalf("ParseBytes(raw) = %q, %v", b, err)
	}

	b, err = ParseBytes("00ff", true)
	if err != nil || len(b) != 2 || b[0] != 0x00 || b[1] != 0xff {
		t.Fatalf("ParseBytes(hex) = %v, %v", b, err)
	}

	if _, err := ParseBytes("zz", true); err == nil {
		t.Fatal("expected an error for invalid hex")
	}

	if got := FormatBytes([]byte{0x00, 0xff}, true); got != "00ff" {
		t.Errorf("FormatBytes(hex) = %q", got)
	}
}

func TestGetClientConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("transport-endpoints", "a:1, b:2,,")
	viper.Set("timeout", 3)
	viper.Set("transport-read-buffer", 2)

	conf := GetClientConfig()
	if len(conf.Transport.Endpoints) != 2 || conf.Transport.Endpoints[1] != "b:2" {
		t.Errorf("unexpected endpoints: %v", conf.Transport.Endpoints)
	}
	if conf.TimeoutSecond != 3 {
		t.Errorf("unexpected timeout: %d", conf.TimeoutSecond)
	}
	if conf.Transport.ReadBufferSize != 2048 {
		t.Errorf("unexpected read buffer size: %d", conf.Transport.ReadBufferSize)
	}
}

func TestTransportAndSerializerSelection(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	for _, name := range []string{"tcp", "unix", "http"} {
		viper.Set("transport", name)
		if _, err := GetTransport(); err != nil {
			t.Errorf("GetTransport(%s): %v", name, err)
		}
		if _, err := GetServerTransport(); err != nil {
			t.Errorf("GetServerTransport(%s): %v", name, err)
		}
	}
	viper.Set("transport", "carrier-pigeon")
	if _, err := GetTransport(); err == nil {
		t.Error("expected an error for an unknown transport")
	}

	viper.Set("serializer", "cbor")
	if _, err := GetSerializer(); err != nil {
		t.Errorf("GetSerializer(cbor): %v", err)
	}
	viper.Set("serializer", "xml")
	if _, err := GetSerializer(); err == nil {
		t.Error("expected an error for an unknown serializer")
	}
}
