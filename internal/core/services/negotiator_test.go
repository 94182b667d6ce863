package services_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"
	"manualcall/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type negotiatorFixture struct {
	negotiator *services.Negotiator
	pc         *testutil.FakePeerConnection
	channels   *services.ChannelManager
	notifier   *testutil.RecordingNotifier
	metrics    *testutil.FakeMetrics
	micOn      atomic.Bool
}

func newNegotiatorFixture(role domain.PeerRole, gatherTimeout time.Duration) *negotiatorFixture {
	f := &negotiatorFixture{
		pc:       testutil.NewFakePeerConnection(),
		notifier: &testutil.RecordingNotifier{},
		metrics:  &testutil.FakeMetrics{},
	}
	f.channels = services.NewChannelManager(services.ChannelManagerConfig{},
		services.NewCaptionLog(0), nil, f.notifier, f.metrics, nil)
	f.negotiator = services.NewNegotiator(services.NegotiatorConfig{
		SessionID:     "test-session",
		Role:          role,
		GatherTimeout: gatherTimeout,
	}, f.pc, f.channels, f.micOn.Load, f.notifier, f.metrics, nil)
	return f
}

const sampleOffer = `{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\n"}`

func TestNegotiatorOfferRequiresMicrophone(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, 0)

	text, err := f.negotiator.CreateOffer(context.Background())

	assert.ErrorIs(t, err, domain.ErrMicrophoneInactive)
	assert.Empty(t, text)
	assert.Nil(t, f.pc.LocalDescription())
	assert.Empty(t, f.pc.DataChannels())
	assert.Contains(t, f.notifier.Toasts(), "Start microphone first")
}

func TestNegotiatorCreateOffer(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, 0)
	f.micOn.Store(true)

	text, err := f.negotiator.CreateOffer(context.Background())
	require.NoError(t, err)

	desc, err := services.ParseSessionDescription(text)
	require.NoError(t, err)
	assert.Equal(t, domain.SDPTypeOffer, desc.Type)
	assert.Contains(t, desc.SDP, "a=candidate:")

	channels := f.pc.DataChannels()
	require.Len(t, channels, 1)
	assert.Equal(t, services.CaptionChannelLabel, channels[0].Label())
	assert.Equal(t, domain.DataChannelStateConnecting, f.channels.State())

	assert.Contains(t, f.notifier.Toasts(), "Offer created")
	assert.Equal(t, []string{"offer"}, f.metrics.Counts().Negotiations)
	assert.Equal(t, text, f.negotiator.LocalDescription())
	assert.False(t, f.negotiator.Busy())
}

func TestNegotiatorWrongRole(t *testing.T) {
	answerer := newNegotiatorFixture(domain.RoleAnswerer, 0)
	answerer.micOn.Store(true)
	_, err := answerer.negotiator.CreateOffer(context.Background())
	assert.ErrorIs(t, err, domain.ErrWrongRole)

	caller := newNegotiatorFixture(domain.RoleCaller, 0)
	caller.micOn.Store(true)
	_, err = caller.negotiator.AcceptOffer(context.Background(), sampleOffer)
	assert.ErrorIs(t, err, domain.ErrWrongRole)
}

func TestNegotiatorGatherTimeoutIsNotAnError(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, 20*time.Millisecond)
	f.pc.AutoGather = false
	f.micOn.Store(true)

	start := time.Now()
	text, err := f.negotiator.CreateOffer(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.NotContains(t, text, "a=candidate:")
	assert.Equal(t, 1, f.metrics.Counts().GatherTimeouts)
}

func TestNegotiatorGatherWaitHonoursContext(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, time.Minute)
	f.pc.AutoGather = false
	f.micOn.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.negotiator.CreateOffer(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.negotiator.Busy())
}

func TestNegotiatorRejectsConcurrentAttempts(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, time.Minute)
	f.pc.AutoGather = false
	f.micOn.Store(true)

	done := make(chan error, 1)
	go func() {
		_, err := f.negotiator.CreateOffer(context.Background())
		done <- err
	}()

	require.Eventually(t, f.negotiator.Busy, time.Second, time.Millisecond)

	_, err := f.negotiator.CreateOffer(context.Background())
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.ErrorIs(t, f.negotiator.SetRemoteDescription(context.Background(), sampleOffer), domain.ErrBusy)

	f.pc.CompleteGathering()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("offer creation did not finish")
	}
	assert.Len(t, f.pc.DataChannels(), 1)
}

func TestNegotiatorAcceptOffer(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleAnswerer, 0)
	f.micOn.Store(true)

	text, err := f.negotiator.AcceptOffer(context.Background(), sampleOffer)
	require.NoError(t, err)

	desc, err := services.ParseSessionDescription(text)
	require.NoError(t, err)
	assert.Equal(t, domain.SDPTypeAnswer, desc.Type)
	require.NotNil(t, f.pc.RemoteDescription())
	assert.Equal(t, domain.SDPTypeOffer, f.pc.RemoteDescription().Type)
	assert.Contains(t, f.notifier.Toasts(), "Answer created")
}

func TestNegotiatorAcceptOfferRejectsBadInput(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		`{"type":"answer","sdp":"v=0"}`,
		`{"type":"offer","sdp":""}`,
		`{"type":"bogus","sdp":"v=0"}`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			f := newNegotiatorFixture(domain.RoleAnswerer, 0)
			f.micOn.Store(true)

			_, err := f.negotiator.AcceptOffer(context.Background(), input)
			assert.ErrorIs(t, err, domain.ErrInvalidDescription)
			assert.Nil(t, f.pc.RemoteDescription())
			assert.Nil(t, f.pc.LocalDescription())
			assert.Contains(t, f.notifier.Toasts(), "Invalid session description")
		})
	}
}

func TestNegotiatorAcceptOfferFailure(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleAnswerer, 0)
	f.micOn.Store(true)
	f.pc.AnswerErr = errors.New("no codecs in common")

	_, err := f.negotiator.AcceptOffer(context.Background(), sampleOffer)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "create answer"))
	assert.False(t, f.negotiator.Busy())
}

func TestNegotiatorSetRemoteDescription(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, 0)

	err := f.negotiator.SetRemoteDescription(context.Background(), `{"type":"answer","sdp":"v=0\r\n"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.SDPTypeAnswer, f.pc.RemoteDescription().Type)
	assert.Contains(t, f.notifier.Toasts(), "Remote description set")

	err = f.negotiator.SetRemoteDescription(context.Background(), "{")
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)
}

func TestNegotiatorReplaceAudioTracks(t *testing.T) {
	f := newNegotiatorFixture(domain.RoleCaller, 0)
	mic := &testutil.FakeMicrophone{}

	for i := 0; i < 3; i++ {
		require.NoError(t, mic.Start(context.Background()))
		require.NoError(t, f.negotiator.ReplaceAudioTracks(mic.Tracks()))
	}

	senders := f.pc.GetSenders()
	require.Len(t, senders, 1)
	assert.Equal(t, "audio", senders[0].TrackKind())
}

func TestParseSessionDescription(t *testing.T) {
	desc, err := services.ParseSessionDescription("  " + sampleOffer + "\n")
	require.NoError(t, err)
	assert.Equal(t, domain.SDPTypeOffer, desc.Type)

	desc, err = services.ParseSessionDescription(`{"type":"rollback"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.SDPTypeRollback, desc.Type)

	_, err = services.ParseSessionDescription(`{"type":"pranswer"}`)
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)

	text, err := services.ExportSessionDescription(domain.SessionDescription{Type: "answer", SDP: "v=0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"answer","sdp":"v=0"}`, text)
}
