package webrtc

import (
	"errors"
	"io"
	"time"

	"manualcall/pkg/optimize"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// MediaStats receives media-plane measurements from the RTP and RTCP
// readers.
type MediaStats interface {
	RemoteAudioPacket(payloadBytes int)
	ReceptionReport(fractionLost uint8, jitter uint32)
	RoundTrip(rtt time.Duration)
	NackReceived(count int)
}

type nopStats struct{}

func (nopStats) RemoteAudioPacket(int)         {}
func (nopStats) ReceptionReport(uint8, uint32) {}
func (nopStats) RoundTrip(time.Duration)       {}
func (nopStats) NackReceived(int)              {}

const mtu = 1500

// readBuffers is shared by every remote track reader across sessions.
var readBuffers = optimize.NewBytePool(mtu)

// drainRemoteTrack reads the remote audio until the track ends. Playback is
// out of scope; the packets are only measured.
func drainRemoteTrack(track *webrtc.TrackRemote, stats MediaStats, logger *zap.SugaredLogger) {
	buf := readBuffers.Get()
	defer readBuffers.Put(buf)
	packet := &rtp.Packet{}
	var received uint64

	for {
		n, _, err := track.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debugw("remote track read ended", "error", err)
			}
			logger.Infow("remote track finished", "packets", received)
			return
		}

		if err := packet.Unmarshal(buf[:n]); err != nil {
			logger.Debugw("error unmarshaling RTP packet", "error", err)
			continue
		}

		received++
		stats.RemoteAudioPacket(len(packet.Payload))
		if received%500 == 0 {
			logger.Debugw("remote audio flowing",
				"packets", received,
				"sequence", packet.SequenceNumber,
				"ssrc", packet.SSRC,
			)
		}
	}
}

func readReceiverRTCP(receiver *webrtc.RTPReceiver, stats MediaStats, logger *zap.SugaredLogger) {
	for {
		packets, _, err := receiver.ReadRTCP()
		if err != nil {
			logger.Debugw("receiver RTCP read ended", "error", err)
			return
		}
		processRTCP(packets, stats, logger)
	}
}

// readSenderRTCP must run for every sender so the interceptors receive
// RTCP from the remote side.
func readSenderRTCP(sender *webrtc.RTPSender, stats MediaStats, logger *zap.SugaredLogger) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			logger.Debugw("sender RTCP read ended", "error", err)
			return
		}
		processRTCP(packets, stats, logger)
	}
}

func processRTCP(packets []rtcp.Packet, stats MediaStats, logger *zap.SugaredLogger) {
	for _, packet := range packets {
		switch p := packet.(type) {
		case *rtcp.ReceiverReport:
			for _, report := range p.Reports {
				stats.ReceptionReport(report.FractionLost, report.Jitter)
				if rtt, ok := roundTrip(report, time.Now()); ok {
					stats.RoundTrip(rtt)
				}
			}
		case *rtcp.SenderReport:
			for _, report := range p.Reports {
				stats.ReceptionReport(report.FractionLost, report.Jitter)
			}
			logger.Debugw("received sender report",
				"packet_count", p.PacketCount,
				"octet_count", p.OctetCount,
			)
		case *rtcp.TransportLayerNack:
			stats.NackReceived(len(p.Nacks))
		}
	}
}

// roundTrip derives RTT from a reception report: arrival time minus the
// echoed last sender report minus the receiver's hold delay, all in NTP
// middle-32-bit units (1/65536 s).
func roundTrip(report rtcp.ReceptionReport, now time.Time) (time.Duration, bool) {
	if report.LastSenderReport == 0 {
		return 0, false
	}
	arrival := ntpMiddle(now)
	elapsed := arrival - report.LastSenderReport - report.Delay
	if elapsed > arrival {
		return 0, false
	}
	return time.Duration(elapsed) * time.Second / 65536, true
}

const ntpEpochOffset = 2208988800

func ntpMiddle(t time.Time) uint32 {
	secs := uint64(t.Unix()) + ntpEpochOffset
	frac := uint64(t.Nanosecond()) << 32 / uint64(time.Second)
	return uint32((secs<<32 | frac) >> 16)
}
