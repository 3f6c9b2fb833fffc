package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"

	"medikon.dev/scan-pipeline/internal/store"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// publishElement marshals an element and publishes it to the scan queue.
func publishElement(element scan.Element) error {
	body, err := json.Marshal(element)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return mqChannel.PublishWithContext(
		ctx,
		"",            // exchange
		scanQueueName, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

var _ = Describe("Scan Consumer E2E", func() {
	ctx := context.Background()

	Describe("processing published scan elements", func() {
		It("should store a processing result for a valid element", func() {
			deviceName := fmt.Sprintf("CT-E2E-%d", time.Now().UnixNano())

			element := scan.Element{
				DeviceName: deviceName,
				Data: []string{
					"10 20 30",
					"40 50 60",
				},
			}

			Expect(publishElement(element)).To(Succeed())

			var device *store.Device
			Eventually(func() error {
				var err error
				device, err = devices.GetByName(ctx, deviceName)
				return err
			}, 15*time.Second, 500*time.Millisecond).Should(Succeed())

			var stored []store.ProcessingResult
			Eventually(func() (int, error) {
				var err error
				stored, err = results.ListByDevice(ctx, device.ID)
				return len(stored), err
			}, 15*time.Second, 500*time.Millisecond).Should(Equal(1))

			result := stored[0]
			Expect(result.DeviceID).To(Equal(device.ID))
			Expect(result.DataSize).To(Equal(int32(6)))
			// Peak is 60, so the mean shrinks by a factor of 60 after scaling.
			Expect(result.AverageBeforeNormalization).To(BeNumerically("~", 35.0, 0.0001))
			Expect(result.AverageAfterNormalization).To(BeNumerically("~", 35.0/60.0, 0.0001))
			Expect(result.CreatedDate).NotTo(BeZero())
			Expect(result.UpdatedDate).NotTo(BeZero())
		})

		It("should reuse the device row for repeated elements from the same scanner", func() {
			deviceName := fmt.Sprintf("MRI-E2E-%d", time.Now().UnixNano())

			for i := 1; i <= 3; i++ {
				element := scan.Element{
					DeviceName: deviceName,
					Data:       []string{fmt.Sprintf("%d %d", i, i*2)},
				}
				Expect(publishElement(element)).To(Succeed())
			}

			var device *store.Device
			Eventually(func() error {
				var err error
				device, err = devices.GetByName(ctx, deviceName)
				return err
			}, 15*time.Second, 500*time.Millisecond).Should(Succeed())

			Eventually(func() (int, error) {
				stored, err := results.ListByDevice(ctx, device.ID)
				return len(stored), err
			}, 15*time.Second, 500*time.Millisecond).Should(Equal(3))

			// Only one device row should exist for the name.
			all, err := devices.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			count := 0
			for _, d := range all {
				if d.DeviceName == deviceName {
					count++
				}
			}
			Expect(count).To(Equal(1))
		})

		It("should drop malformed messages without blocking the queue", func() {
			deviceName := fmt.Sprintf("XR-E2E-%d", time.Now().UnixNano())

			// Publish garbage first, then a valid element. If the garbage
			// were requeued instead of dropped, the valid element would
			// never be processed with prefetch 1.
			ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(mqChannel.PublishWithContext(
				ctx2,
				"",
				scanQueueName,
				false,
				false,
				amqp.Publishing{
					ContentType: "application/json",
					Body:        []byte("this is not json"),
				},
			)).To(Succeed())

			Expect(publishElement(scan.Element{
				DeviceName: deviceName,
				Data:       []string{"1 2 3"},
			})).To(Succeed())

			Eventually(func() error {
				_, err := devices.GetByName(ctx, deviceName)
				return err
			}, 15*time.Second, 500*time.Millisecond).Should(Succeed())
		})

		It("should drop elements that fail validation", func() {
			deviceName := fmt.Sprintf("US-E2E-%d", time.Now().UnixNano())

			// All-zero data has no peak to scale against, so the element
			// is rejected and must not create a device.
			Expect(publishElement(scan.Element{
				DeviceName: deviceName,
				Data:       []string{"0 0 0"},
			})).To(Succeed())

			// A follow-up valid element from another device proves the
			// invalid one was consumed and dropped.
			validName := deviceName + "-valid"
			Expect(publishElement(scan.Element{
				DeviceName: validName,
				Data:       []string{"5 10"},
			})).To(Succeed())

			Eventually(func() error {
				_, err := devices.GetByName(ctx, validName)
				return err
			}, 15*time.Second, 500*time.Millisecond).Should(Succeed())

			_, err := devices.GetByName(ctx, deviceName)
			Expect(err).To(MatchError(store.ErrDeviceNotFound))
		})
	})

	Describe("health endpoint", func() {
		It("should report healthy while the database is reachable", func() {
			resp, err := http.Get(fmt.Sprintf("http://localhost:%d/healthz", healthPort))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should expose Prometheus metrics", func() {
			resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", healthPort))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
