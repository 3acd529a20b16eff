package repository

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v2"
)

// RuleRepository は多段分割・統合の対象、モーフ条件、接地固定区間の設定ファイルを扱う。
// 拡張子が .yaml/.yml の場合は YAML、それ以外は CSV として読む
type RuleRepository struct{}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

func isYaml(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func readRuleFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return decodeText(data), nil
}

// decodeText は UTF-8 として不正な場合 Shift-JIS(cp932) として読み替える
func decodeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data
	}
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return data
	}
	return decoded
}

// readCsvRows は列数が minColumns に満たない行を警告して読み飛ばす
func readCsvRows(r io.Reader, minColumns int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows := make([][]string, 0)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				mlog.W("CSVの%d行目を読み込めませんでした: %s", line, err.Error())
				continue
			}
			return nil, errors.WithStack(err)
		}
		if len(record) < minColumns {
			mlog.W("CSVの%d行目の列数が足りません: %v", line, record)
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func loadYaml[T any](path string) ([]*T, error) {
	data, err := readRuleFile(path)
	if err != nil {
		return nil, err
	}
	values := make([]*T, 0)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "yaml %s", path)
	}
	return values, nil
}

// LoadSplitTargets は 分割元,X回転,Y回転,Z回転,X移動,Y移動,Z移動 の順の設定を読む
func (rep *RuleRepository) LoadSplitTargets(path string) ([]*domain.SplitTarget, error) {
	if isYaml(path) {
		return loadYaml[domain.SplitTarget](path)
	}

	rows, err := rep.readCsv(path, 7)
	if err != nil {
		return nil, err
	}
	targets := make([]*domain.SplitTarget, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			mlog.W("分割元ボーンの指定がない行を読み飛ばします: %v", row)
			continue
		}
		targets = append(targets, &domain.SplitTarget{
			Source: row[0], Rx: row[1], Ry: row[2], Rz: row[3], Mx: row[4], My: row[5], Mz: row[6],
		})
	}
	return targets, nil
}

// LoadJoinTargets は 統合先,X回転,Y回転,Z回転,X移動,Y移動,Z移動 の順の設定を読む
func (rep *RuleRepository) LoadJoinTargets(path string) ([]*domain.JoinTarget, error) {
	if isYaml(path) {
		return loadYaml[domain.JoinTarget](path)
	}

	rows, err := rep.readCsv(path, 7)
	if err != nil {
		return nil, err
	}
	targets := make([]*domain.JoinTarget, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			mlog.W("統合先ボーンの指定がない行を読み飛ばします: %v", row)
			continue
		}
		targets = append(targets, &domain.JoinTarget{
			Dest: row[0], Rx: row[1], Ry: row[2], Rz: row[3], Mx: row[4], My: row[5], Mz: row[6],
		})
	}
	return targets, nil
}

// LoadMorphConditions は モーフ名,条件値,条件,倍率 の順の設定を読む
func (rep *RuleRepository) LoadMorphConditions(path string) ([]*domain.MorphCondition, error) {
	if isYaml(path) {
		conditions, err := loadYaml[domain.MorphCondition](path)
		if err != nil {
			return nil, err
		}
		valid := make([]*domain.MorphCondition, 0, len(conditions))
		for _, c := range conditions {
			op, ok := domain.ParseCompareOp(string(c.Op))
			if !ok {
				mlog.W("条件を解釈できないため読み飛ばします: %s %s", c.MorphName, c.Op)
				continue
			}
			c.Op = op
			valid = append(valid, c)
		}
		return valid, nil
	}

	rows, err := rep.readCsv(path, 4)
	if err != nil {
		return nil, err
	}
	conditions := make([]*domain.MorphCondition, 0, len(rows))
	for _, row := range rows {
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			mlog.W("条件値を解釈できないため読み飛ばします: %v", row)
			continue
		}
		op, ok := domain.ParseCompareOp(row[2])
		if !ok {
			mlog.W("条件を解釈できないため読み飛ばします: %v", row)
			continue
		}
		ratio, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			mlog.W("倍率を解釈できないため読み飛ばします: %v", row)
			continue
		}
		conditions = append(conditions, &domain.MorphCondition{
			MorphName: row[0], Op: op, Value: value, Ratio: ratio,
		})
	}
	return conditions, nil
}

// SaveMorphConditions はモーフ条件を読み込みと同じ列順の CSV (Shift-JIS) で保存する
func (rep *RuleRepository) SaveMorphConditions(path string, conditions []*domain.MorphCondition) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for _, c := range conditions {
		if err := cw.Write([]string{
			c.MorphName,
			strconv.FormatFloat(c.Value, 'f', -1, 64),
			c.Op.Label(),
			strconv.FormatFloat(c.Ratio, 'f', -1, 64),
		}); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.WithStack(err)
	}

	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "shift-jis encode")
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(encoded); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}

// LoadStanceLocks は 開始,終了,接地ボーン の順の設定を読む
func (rep *RuleRepository) LoadStanceLocks(path string) ([]*domain.StanceLock, error) {
	var locks []*domain.StanceLock
	if isYaml(path) {
		loaded, err := loadYaml[domain.StanceLock](path)
		if err != nil {
			return nil, err
		}
		locks = loaded
	} else {
		rows, err := rep.readCsv(path, 3)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			start, err1 := strconv.Atoi(row[0])
			end, err2 := strconv.Atoi(row[1])
			if err1 != nil || err2 != nil {
				mlog.W("区間を解釈できないため読み飛ばします: %v", row)
				continue
			}
			locks = append(locks, &domain.StanceLock{Start: start, End: end, GroundBone: row[2]})
		}
	}

	valid := make([]*domain.StanceLock, 0, len(locks))
	for _, lock := range locks {
		if lock.Start > lock.End || lock.Start < 0 {
			mlog.W("不正な区間を読み飛ばします: %d-%d", lock.Start, lock.End)
			continue
		}
		valid = append(valid, lock)
	}
	return valid, nil
}

func (rep *RuleRepository) readCsv(path string, minColumns int) ([][]string, error) {
	data, err := readRuleFile(path)
	if err != nil {
		return nil, err
	}
	return readCsvRows(bytes.NewReader(data), minColumns)
}
