package jext

import (
	"sort"
	"strings"

	"JDubboFrame/jurl"
)

/*
    @brief:按URL、显式名单和组，返回有序的激活扩展列表
	名单不含-default时先选隐式批次：组匹配且URL键谓词命中的实现，按before/after/order排序；
	显式名字按名单顺序附加，名单中的default标记隐式批次的插入位置，-name把名字从两边都去掉
	@param [in] url:本次调用的URL
	@param [in] values:显式名单
	@param [in] group:组，空组匹配所有
*/
func (loader *ExtensionLoader) GetActivateExtension(url *jurl.URL, values []string, group string) ([]interface{}, error) {
	exts := []interface{}{}
	names := values
	if !containsStr(names, "-default") {
		if _, err := loader.getExtensionClasses(); err != nil {
			return nil, err
		}
		type candidate struct {
			name string
			act  *Activate
		}
		var cands []candidate
		loader.classesLock.Lock()
		activateNames := make([]string, len(loader.cachedActivateNames))
		copy(activateNames, loader.cachedActivateNames)
		activates := make(map[string]*Activate, len(loader.cachedActivates))
		for k, v := range loader.cachedActivates {
			activates[k] = v
		}
		loader.classesLock.Unlock()
		for _, name := range activateNames {
			act := activates[name]
			if !matchGroup(group, act.Group) {
				continue
			}
			if containsStr(names, name) || containsStr(names, "-"+name) {
				continue
			}
			if !isActive(act, url) {
				continue
			}
			cands = append(cands, candidate{name: name, act: act})
		}
		sort.SliceStable(cands, func(i, j int) bool {
			a, b := cands[i], cands[j]
			if containsStr(a.act.Before, b.name) || containsStr(b.act.After, a.name) {
				return true
			}
			if containsStr(a.act.After, b.name) || containsStr(b.act.Before, a.name) {
				return false
			}
			if a.act.Order != b.act.Order {
				return a.act.Order < b.act.Order
			}
			return a.name < b.name
		})
		for _, c := range cands {
			ext, err := loader.GetExtension(c.name)
			if err != nil {
				return nil, err
			}
			exts = append(exts, ext)
		}
	}
	var usrs []interface{}
	for _, name := range names {
		if strings.HasPrefix(name, "-") || containsStr(names, "-"+name) {
			continue
		}
		if name == "default" {
			//default之前的显式扩展插到隐式批次前面
			if len(usrs) > 0 {
				exts = append(usrs, exts...)
				usrs = nil
			}
			continue
		}
		ext, err := loader.GetExtension(name)
		if err != nil {
			return nil, err
		}
		usrs = append(usrs, ext)
	}
	if len(usrs) > 0 {
		exts = append(exts, usrs...)
	}
	return exts, nil
}

/*
    @brief:显式名单取自URL参数key的逗号分隔值
	@param [in] url:本次调用的URL
	@param [in] key:承载名单的参数键
	@param [in] group:组
*/
func (loader *ExtensionLoader) GetActivateExtensionWithKey(url *jurl.URL, key string, group string) ([]interface{}, error) {
	var values []string
	if v := url.GetParameter(key); v != "" {
		values = splitNames(v)
	}
	return loader.GetActivateExtension(url, values, group)
}

func splitNames(v string) []string {
	parts := strings.Split(v, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchGroup(group string, groups []string) bool {
	if group == "" {
		return true
	}
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

//URL中存在键key或以.key结尾的键且值非空时激活，没有键谓词时总是激活
func isActive(act *Activate, url *jurl.URL) bool {
	if len(act.Value) == 0 {
		return true
	}
	if url == nil {
		return false
	}
	for _, key := range act.Value {
		for k, v := range url.GetParameters() {
			if (k == key || strings.HasSuffix(k, "."+key)) && v != "" {
				return true
			}
		}
	}
	return false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
