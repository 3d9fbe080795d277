/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package index

// Hand-written MessagePack encoding for Index and Object, built on the
// github.com/tinylib/msgp/msgp runtime helpers that msgp-generated code uses.

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler.
func (idx *Index) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 3)
	o = msgp.AppendString(o, "cache_size")
	o = msgp.AppendInt64(o, idx.CacheSize)
	o = msgp.AppendString(o, "object_count")
	o = msgp.AppendInt64(o, idx.ObjectCount)
	o = msgp.AppendString(o, "objects")
	o = msgp.AppendMapHeader(o, uint32(len(idx.Objects)))
	for key, val := range idx.Objects {
		o = msgp.AppendString(o, key)
		var err error
		o, err = val.MarshalMsg(o)
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (idx *Index) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "cache_size":
			idx.CacheSize, bts, err = msgp.ReadInt64Bytes(bts)
		case "object_count":
			idx.ObjectCount, bts, err = msgp.ReadInt64Bytes(bts)
		case "objects":
			var osz uint32
			osz, bts, err = msgp.ReadMapHeaderBytes(bts)
			if err != nil {
				return bts, err
			}
			idx.Objects = make(map[string]*Object, osz)
			for j := uint32(0); j < osz; j++ {
				var key string
				key, bts, err = msgp.ReadStringBytes(bts)
				if err != nil {
					return bts, err
				}
				obj := &Object{}
				bts, err = obj.UnmarshalMsg(bts)
				if err != nil {
					return bts, err
				}
				idx.Objects[key] = obj
			}
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// MarshalMsg implements msgp.Marshaler.
func (o *Object) MarshalMsg(b []byte) ([]byte, error) {
	out := msgp.AppendMapHeader(b, 5)
	out = msgp.AppendString(out, "key")
	out = msgp.AppendString(out, o.Key)
	out = msgp.AppendString(out, "expiration")
	out = msgp.AppendTime(out, o.Expiration)
	out = msgp.AppendString(out, "lastwrite")
	out = msgp.AppendTime(out, o.LastWrite)
	out = msgp.AppendString(out, "lastaccess")
	out = msgp.AppendTime(out, o.LastAccess)
	out = msgp.AppendString(out, "size")
	out = msgp.AppendInt64(out, o.Size)
	return out, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (o *Object) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "key":
			o.Key, bts, err = msgp.ReadStringBytes(bts)
		case "expiration":
			o.Expiration, bts, err = msgp.ReadTimeBytes(bts)
		case "lastwrite":
			o.LastWrite, bts, err = msgp.ReadTimeBytes(bts)
		case "lastaccess":
			o.LastAccess, bts, err = msgp.ReadTimeBytes(bts)
		case "size":
			o.Size, bts, err = msgp.ReadInt64Bytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}
