//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "multisig/pkg/platform/audit"
	"multisig/pkg/platform/audit/store/kafka"
	"multisig/pkg/testutil/containers"
)

type SinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkSuite))
}

func (s *SinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *SinkSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "audit-" + uuid.NewString()
	producer := s.redpanda.NewClient(s.T())
	defer producer.Close()

	sink := kafka.NewSink(producer, topic)
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1), "second create must be a no-op")

	registryID := uuid.NewString()
	event := audit.Event{
		Category:   audit.CategoryAuthorization,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		RegistryID: registryID,
		ProposalID: uuid.NewString(),
		Action:     string(audit.EventProposalApproved),
		Decision:   "granted",
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer := s.redpanda.NewClient(s.T(),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal(registryID, string(records[0].Key))
	got, err := kafka.Decode(records[0].Value)
	s.Require().NoError(err)
	s.Equal(event.Action, got.Action)
	s.Equal(event.ProposalID, got.ProposalID)
	s.True(event.Timestamp.Equal(got.Timestamp))

	headers := map[string]string{}
	for _, h := range records[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.EventProposalApproved), headers["action"])
	s.Equal(string(audit.CategoryAuthorization), headers["category"])
}
