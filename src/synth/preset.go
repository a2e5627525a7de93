package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type presetMetaJSON struct {
	Name string `json:"name"`
}
type presetMetaListJSON struct {
	Items []presetMetaJSON `json:"items"`
}

type presetManager struct {
	dir  string
	list []string
}

func newPresetManager(dir string) *presetManager {
	return &presetManager{
		dir: dir,
	}
}

func (pm *presetManager) getList() ([]string, error) {
	if pm.list == nil {
		if err := pm.loadList(); err != nil {
			return nil, err
		}
	}
	return pm.list, nil
}

func (pm *presetManager) applyToPatch(name string, target *Patch) error {
	list, err := pm.getList()
	if err != nil {
		return err
	}
	found := false
	for _, item := range list {
		if item == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown preset %q", name)
	}
	bytes, err := os.ReadFile(filepath.Join(pm.dir, name+".json"))
	if err != nil {
		return err
	}
	return target.ApplyJSON(bytes)
}

func (pm *presetManager) loadList() error {
	bytes, err := os.ReadFile(filepath.Join(pm.dir, "_list.json"))
	if err != nil {
		return err
	}
	metaListJSON := &presetMetaListJSON{}
	if err := json.Unmarshal(bytes, metaListJSON); err != nil {
		return fmt.Errorf("invalid preset list: %w", err)
	}
	pm.list = make([]string, len(metaListJSON.Items))
	for i, item := range metaListJSON.Items {
		pm.list[i] = item.Name
	}
	return nil
}
