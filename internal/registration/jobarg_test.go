package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobArg_RoundTripsAllSSIDsAndReconnectBit(t *testing.T) {
	for _, reconnect := range []bool{false, true} {
		for ssid := 1; ssid <= 65535; ssid++ {
			arg := EncodeArg(ServerID(ssid), reconnect)
			gotSSID, gotReconnect := arg.Decode()
			if gotSSID != ServerID(ssid) || gotReconnect != reconnect {
				t.Fatalf("round trip mismatch: ssid=%d reconnect=%v -> got ssid=%d reconnect=%v",
					ssid, reconnect, gotSSID, gotReconnect)
			}
		}
	}
}

func TestJobArg_ReconnectBitIndependentOfSSID(t *testing.T) {
	withBit := EncodeArg(ServerID(42), true)
	withoutBit := EncodeArg(ServerID(42), false)
	assert.NotEqual(t, withBit, withoutBit)

	ssidA, _ := withBit.Decode()
	ssidB, _ := withoutBit.Decode()
	assert.Equal(t, ssidA, ssidB)
}

func TestJobArg_AnyServerAndBootstrapServerEncodeDistinctly(t *testing.T) {
	any := EncodeArg(AnyServer, false)
	bootstrap := EncodeArg(BootstrapServer, false)
	assert.NotEqual(t, any, bootstrap)

	ssid, reconnect := bootstrap.Decode()
	assert.Equal(t, BootstrapServer, ssid)
	assert.False(t, reconnect)
}
