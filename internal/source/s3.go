package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lux-labs/balance-indexer/internal/chain"
)

// Downloader is the subset of the AWS S3 client S3Source needs, so tests
// can substitute a fake without talking to a real bucket or to a
// MinIO-style compatible endpoint.
type Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads NEAR Lake-style per-block JSON from an S3 (or
// S3-compatible) bucket, one block per {height}/block.json + per-shard
// {height}/shard_{n}.json object pair, and walks forward from
// startHeight. This is the block-stream source named, but not
// implemented, in spec.md §1/§6 ("the block-stream source
// (S3/object-storage-backed ordered reader)").
type S3Source struct {
	client      Downloader
	bucket      string
	nextHeight  uint64
}

// NewS3Source builds a source over bucket, starting at startHeight.
func NewS3Source(client Downloader, bucket string, startHeight uint64) *S3Source {
	return &S3Source{client: client, bucket: bucket, nextHeight: startHeight}
}

type blockObject struct {
	Header chain.BlockHeader `json:"header"`
	Shards []uint64          `json:"shard_ids"`
}

type shardObject struct {
	ShardID                  uint64                         `json:"shard_id"`
	Chunk                    *chain.Chunk                   `json:"chunk"`
	StateChanges             []chain.StateChangeWithCause   `json:"state_changes"`
	ReceiptExecutionOutcomes []chain.ReceiptExecutionOutcome `json:"receipt_execution_outcomes"`
}

// Next fetches the block at s.nextHeight and all of its shards, and
// advances past it. A missing block object (surfaced by the S3 client
// as a NoSuchKey-class error) is returned as a wrapped error like any
// other fetch failure; it is not reported as ErrEndOfStream, and
// nextHeight is not advanced.
func (s *S3Source) Next(ctx context.Context) (*chain.StreamerMessage, error) {
	height := s.nextHeight

	block, err := s.getJSON(ctx, blockKey(height), &blockObject{})
	if err != nil {
		return nil, fmt.Errorf("source: fetch block %d: %w", height, err)
	}
	b := block.(*blockObject)

	msg := &chain.StreamerMessage{Header: b.Header}
	for _, shardID := range b.Shards {
		shard, err := s.getJSON(ctx, shardKey(height, shardID), &shardObject{})
		if err != nil {
			return nil, fmt.Errorf("source: fetch block %d shard %d: %w", height, shardID, err)
		}
		sh := shard.(*shardObject)
		msg.Shards = append(msg.Shards, chain.Shard{
			ShardID:                  sh.ShardID,
			Chunk:                    sh.Chunk,
			StateChanges:             sh.StateChanges,
			ReceiptExecutionOutcomes: sh.ReceiptExecutionOutcomes,
		})
	}

	s.nextHeight = height + 1
	return msg, nil
}

func (s *S3Source) getJSON(ctx context.Context, key string, into interface{}) (interface{}, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return into, nil
}

func blockKey(height uint64) string {
	return fmt.Sprintf("%012d/block.json", height)
}

func shardKey(height, shardID uint64) string {
	return fmt.Sprintf("%012d/shard_%d.json", height, shardID)
}
