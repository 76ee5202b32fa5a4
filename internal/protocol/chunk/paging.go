package chunk

import (
	"context"
	"fmt"

	"github.com/danmuck/frostctl/internal/protocol"
)

// FetchPage retrieves result page index (0-based). Cancellation and
// timeouts belong to the transport behind it; the collectors never stop
// between pages on their own.
type FetchPage func(ctx context.Context, page int) (protocol.Response, error)

// CollectLegacy reassembles a result whose pages are chained by length:
// a page of exactly maxFrame raw bytes means another page follows. Each
// page's status must be success; the first failure aborts and no partial
// data is returned. The second return value is the number of fetches issued.
func CollectLegacy(ctx context.Context, first protocol.Response, maxFrame int, fetch FetchPage) ([]byte, int, error) {
	resp := first
	var data []byte
	fetches := 0
	for {
		if err := resp.Err(); err != nil {
			return nil, fetches, err
		}
		data = append(data, resp.Data...)
		if resp.Len() != maxFrame {
			return data, fetches, nil
		}
		next, err := fetch(ctx, fetches)
		fetches++
		if err != nil {
			return nil, fetches, err
		}
		resp = next
	}
}

// PageCount reads the one-byte page count announced by the final chunk
// response. An empty body means the exchange produced no result.
func PageCount(resp protocol.Response) (int, error) {
	switch len(resp.Data) {
	case 0:
		return 0, nil
	case 1:
		return int(resp.Data[0]), nil
	default:
		return 0, fmt.Errorf("%w: page count body is %d bytes", protocol.ErrMalformedResponse, len(resp.Data))
	}
}

// CollectPaged fetches exactly count pages indexed 0..count-1 and
// concatenates their payloads.
func CollectPaged(ctx context.Context, count int, fetch FetchPage) ([]byte, error) {
	var data []byte
	for i := 0; i < count; i++ {
		resp, err := fetch(ctx, i)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}
		data = append(data, resp.Data...)
	}
	return data, nil
}
