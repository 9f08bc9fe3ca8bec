package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals TurnStoredEvent with expected top-level keys", func() {
		event := eventstream.NewTurnStoredEvent(
			eventstream.EventSource{UserName: "sam", AssistantName: "engram"},
			eventstream.TurnMeta{
				Timestamp:      "2025-01-01T00:00:00.000000",
				PromptChunks:   1,
				ResponseChunks: 2,
				DurationMs:     12,
			},
			eventstream.TurnChunkIDs{
				Prompt:   []string{"2025-01-01T00:00:00.000000_prompt_0"},
				Response: []string{"2025-01-01T00:00:00.000000_response_0", "2025-01-01T00:00:00.000000_response_1"},
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("turn"))
		Expect(got).To(HaveKey("chunks"))
	})

	It("fills the envelope", func() {
		a := eventstream.NewTurnStoredEvent(eventstream.EventSource{}, eventstream.TurnMeta{}, eventstream.TurnChunkIDs{})
		b := eventstream.NewTurnStoredEvent(eventstream.EventSource{}, eventstream.TurnMeta{}, eventstream.TurnChunkIDs{})

		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(a.EventType).To(Equal(eventstream.EventTypeTurnStored))
		Expect(a.EventID).NotTo(BeEmpty())
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.EmittedAt).NotTo(BeZero())
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnStored).To(Equal("engram.turn.stored"))
	})

	Describe("Encode", func() {
		It("rejects nil events", func() {
			_, err := eventstream.Encode(nil)
			Expect(err).To(MatchError(eventstream.ErrNilTurnEvent))
		})

		It("produces the JSON payload", func() {
			event := eventstream.NewTurnStoredEvent(
				eventstream.EventSource{UserName: "sam"},
				eventstream.TurnMeta{Timestamp: "2025-01-01T00:00:00.000000"},
				eventstream.TurnChunkIDs{},
			)
			payload, err := eventstream.Encode(event)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(payload)).To(ContainSubstring(`"event_type":"engram.turn.stored"`))
			Expect(string(payload)).To(ContainSubstring(`"user_name":"sam"`))
			Expect(string(payload)).NotTo(ContainSubstring(`"prompt"`))
		})
	})
})
