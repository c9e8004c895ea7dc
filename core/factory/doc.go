// Package factory provides a small generic registry used to instantiate modules
// from configuration. A module is a type name plus a map of raw settings;
// factories decode the settings into typed structs with Decode and return the
// concrete implementation. Metrics sinks and result stores are built this way.
//
// Example usage:
//
//	reg := factory.NewRegistry[io.WriteCloser]()
//	reg.Register("file", func(conf map[string]any) (io.WriteCloser, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Create(c.Path)
//	})
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "out.jsonl"}})
package factory
