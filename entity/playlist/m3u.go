package playlist

import "fmt"

type M3UEncoder struct {
	encoder
}

func newM3UEncoder(base encoder) (*M3UEncoder, error) {
	if _, err := fmt.Fprintln(base.writer, "#EXTM3U"); err != nil {
		base.file.Close()
		return nil, err
	}
	return &M3UEncoder{base}, nil
}

func (encoder *M3UEncoder) Add(entry Entry) error {
	_, err := fmt.Fprintf(encoder.writer, "#EXTINF:%d,%s\n%s\n",
		entry.Duration, entry.Title, encoder.shortest(entry.Path))
	return err
}

func (encoder *M3UEncoder) Close() error {
	return encoder.close()
}
