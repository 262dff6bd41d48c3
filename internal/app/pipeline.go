package app

import (
	"time"

	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/sampler"
)

// runDriver polls the camera at the driver interval. Every frame becomes the
// latest preview frame; while detection is enabled it is also offered to the
// sampler on its own goroutine so a slow detector never stalls the preview.
// The sampler drops whatever its throttle or a running cycle rejects.
func (a *App) runDriver(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.DriverInterval)
	defer ticker.Stop()

	readErrors := 0

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				// Log the first failure of a streak only.
				if readErrors == 0 {
					log.Warn("error reading frame", "error", err)
				}
				readErrors++
				continue
			}
			if readErrors > 0 {
				log.Info("camera recovered", "failed_reads", readErrors)
				readErrors = 0
			}

			a.keepFrame(frame)

			if !a.IsEnabled() {
				frame.Close()
				continue
			}

			a.offers.Add(1)
			go func() {
				defer a.offers.Done()
				defer frame.Close()

				switch outcome := a.sampler.Offer(frame); outcome {
				case sampler.OutcomeProcessed, sampler.OutcomeFailed:
					log.Debug("detection cycle finished", "outcome", outcome)
				}
			}()
		}
	}
}
