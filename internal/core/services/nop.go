package services

import (
	"time"

	"manualcall/internal/core/domain"
)

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Notification) {}

type nopMetrics struct{}

func (nopMetrics) CaptionSent()                                     {}
func (nopMetrics) CaptionQueued()                                   {}
func (nopMetrics) CaptionDropped()                                  {}
func (nopMetrics) CaptionReceived()                                 {}
func (nopMetrics) MalformedMessage()                                {}
func (nopMetrics) NegotiationCompleted(string, time.Duration, bool) {}
func (nopMetrics) ConnectionStateChanged(domain.ConnectionState)    {}
func (nopMetrics) DataChannelStateChanged(domain.DataChannelState)  {}
