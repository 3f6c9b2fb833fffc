package generator_test

import (
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"medikon.dev/scan-pipeline/pkg/generator"
)

var _ = Describe("ScannerDevice", func() {
	It("should generate a device with a fleet-style name", func() {
		device := generator.NewScannerDevice()
		Expect(device).NotTo(BeNil())

		parts := strings.Split(device.Name, "-")
		Expect(len(parts)).To(BeNumerically(">=", 3))
		Expect(parts[0]).To(BeElementOf("MRI", "CT", "XR", "US", "PET"))
		Expect(device.Timestamp).NotTo(BeZero())
	})

	It("should generate distinct devices", func() {
		names := map[string]bool{}
		for i := 0; i < 20; i++ {
			device := generator.NewScannerDevice()
			Expect(device).NotTo(BeNil())
			names[device.Name] = true
		}
		// Serial numbers span 1000-9999, collisions should be rare
		Expect(len(names)).To(BeNumerically(">", 10))
	})
})

var _ = Describe("ScanDataGenerator", func() {
	var gen *generator.ScanDataGenerator

	BeforeEach(func() {
		gen = generator.NewScanGenerator("MRI-SPRING-4821")
	})

	Describe("GenerateElement", func() {
		It("should produce the requested matrix shape", func() {
			element := gen.GenerateElement(4, 6)

			Expect(element.DeviceName).To(Equal("MRI-SPRING-4821"))
			Expect(element.Data).To(HaveLen(4))
			for _, row := range element.Data {
				Expect(strings.Fields(row)).To(HaveLen(6))
			}
		})

		It("should produce samples within the detector range", func() {
			element := gen.GenerateElement(8, 8)

			for _, row := range element.Data {
				for _, field := range strings.Fields(row) {
					value, err := strconv.Atoi(field)
					Expect(err).NotTo(HaveOccurred())
					Expect(value).To(BeNumerically(">=", 0))
					Expect(value).To(BeNumerically("<=", 4095))
				}
			}
		})

		It("should produce elements that pass validation", func() {
			element := gen.GenerateElement(3, 5)

			Expect(element.Validate()).To(Succeed())

			values, err := element.Values()
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(HaveLen(15))
		})

		It("should handle a single-sample matrix", func() {
			element := gen.GenerateElement(1, 1)

			Expect(element.Data).To(HaveLen(1))
			Expect(strings.Fields(element.Data[0])).To(HaveLen(1))
		})
	})
})
