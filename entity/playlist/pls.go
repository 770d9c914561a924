package playlist

import "fmt"

type PLSEncoder struct {
	encoder
	count int
}

func newPLSEncoder(base encoder) (*PLSEncoder, error) {
	if _, err := fmt.Fprintln(base.writer, "[playlist]"); err != nil {
		base.file.Close()
		return nil, err
	}
	return &PLSEncoder{encoder: base}, nil
}

func (encoder *PLSEncoder) Add(entry Entry) error {
	encoder.count++
	_, err := fmt.Fprintf(encoder.writer, "\nFile%d=%s\nLength%d=%d\n",
		encoder.count, encoder.shortest(entry.Path), encoder.count, entry.Duration)
	return err
}

func (encoder *PLSEncoder) Close() error {
	if _, err := fmt.Fprintf(encoder.writer, "NumberOfEntries=%d\nVersion=2\n", encoder.count); err != nil {
		encoder.file.Close()
		return err
	}
	return encoder.close()
}
